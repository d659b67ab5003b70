package constants

// ExtractionStatus is the canonical lifecycle status for a receipt's
// extraction. Stable values (store these exact strings in DB).
type ExtractionStatus string

const (
	StatusPending    ExtractionStatus = "PENDING"    // uploaded, awaiting processing
	StatusProcessing ExtractionStatus = "PROCESSING" // claimed by a pipeline run
	StatusCompleted  ExtractionStatus = "COMPLETED"  // terminal success
	StatusFailed     ExtractionStatus = "FAILED"     // terminal failure, retryable by re-queue
)

// Terminal reports whether the status permits no further transitions.
func (s ExtractionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. COMPLETED is final; FAILED may only be re-claimed for PROCESSING.
func (s ExtractionStatus) CanTransition(next ExtractionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	default:
		return false
	}
}
