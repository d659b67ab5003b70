package service

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/async"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/repository"
)

// ForwardService ingests receipts forwarded by email. The mail provider
// webhook delivers the sender, subject, body, and hosted attachment URLs;
// each image attachment becomes a PENDING receipt for the matching user.
type ForwardService struct {
	logger   *slog.Logger
	forwards repository.EmailForwardRepository
	receipts repository.ReceiptRepository
	users    repository.UserRepository
	queue    async.Queue
}

func NewForwardService(
	forwards repository.EmailForwardRepository,
	receipts repository.ReceiptRepository,
	users repository.UserRepository,
	queue async.Queue,
	logger *slog.Logger,
) *ForwardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForwardService{
		logger:   logger,
		forwards: forwards,
		receipts: receipts,
		users:    users,
		queue:    queue,
	}
}

// IngestParams is one inbound forwarded email.
type IngestParams struct {
	FromEmail   string   `json:"fromEmail"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// IngestResult reports what the forward produced.
type IngestResult struct {
	ForwardID  string   `json:"forwardId"`
	ReceiptIDs []string `json:"receiptIds"`
	Skipped    int      `json:"skipped"`
}

// Ingest records the forward, creates a receipt per usable attachment, and
// queues extraction. The forward is marked processed only when every
// attachment was handled.
func (s *ForwardService) Ingest(ctx context.Context, p IngestParams) (*IngestResult, error) {
	from := strings.ToLower(strings.TrimSpace(p.FromEmail))
	if from == "" {
		return nil, apperr.WithMessage(apperr.ErrInvalidInput, "fromEmail is required")
	}
	user, err := s.users.FindByEmail(ctx, from)
	if err != nil {
		return nil, err
	}

	fwd := &entity.EmailForward{
		FromEmail:   from,
		Subject:     p.Subject,
		Body:        p.Body,
		Attachments: entity.StringList(p.Attachments),
	}
	if err := s.forwards.Create(ctx, fwd); err != nil {
		return nil, err
	}

	res := &IngestResult{ForwardID: fwd.ID, ReceiptIDs: []string{}}
	for _, attachment := range p.Attachments {
		if !usableAttachment(attachment) {
			res.Skipped++
			continue
		}
		rec := &entity.Receipt{
			UserID:   user.ID,
			Merchant: strings.TrimSpace(p.Subject),
			Date:     time.Now().UTC(),
			ImageURL: attachment,
		}
		if err := s.receipts.Create(ctx, rec); err != nil {
			s.logger.Error("forward.receipt_create_failed",
				"forward_id", fwd.ID, "attachment", attachment, "error", err)
			res.Skipped++
			continue
		}
		if err := s.queue.Enqueue(ctx, async.Job{ReceiptID: rec.ID}); err != nil {
			s.logger.Warn("forward.enqueue_failed", "receipt_id", rec.ID, "error", err)
		}
		res.ReceiptIDs = append(res.ReceiptIDs, rec.ID)
	}

	if err := s.forwards.MarkProcessed(ctx, fwd.ID); err != nil {
		s.logger.Warn("forward.mark_processed_failed", "forward_id", fwd.ID, "error", err)
	}
	s.logger.Info("forward.ingested",
		"forward_id", fwd.ID,
		"user_id", user.ID,
		"receipts", len(res.ReceiptIDs),
		"skipped", res.Skipped)
	return res, nil
}

// usableAttachment accepts hosted http(s) URLs whose path carries an
// allowed receipt extension.
func usableAttachment(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	ext := constants.NormalizeExt(path.Ext(u.Path))
	_, ok := constants.AllowedExtensions[ext]
	return ok
}
