package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/extract"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/storage"
	"github.com/receiptvault/receiptvault/internal/testutil"
)

type stubVision struct {
	response string
	err      error
}

func (s *stubVision) ExtractReceipt(context.Context, []byte, string) (string, error) {
	return s.response, s.err
}

type pipelineFixture struct {
	proc       *Processor
	receipts   repository.ReceiptRepository
	categories repository.CategoryRepository
	user       *entity.User
	imageURL   string
}

func newFixture(t *testing.T, vision extract.VisionModel) *pipelineFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db)
	receipts := repository.NewReceiptRepository(db, nil)
	categories := repository.NewCategoryRepository(db, nil)

	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("fake-image-bytes"))
	}))
	t.Cleanup(imageSrv.Close)

	fetcher := storage.NewFetcher(nil, 5*time.Second, nil)
	extractor := extract.NewService(vision, nil, nil)
	return &pipelineFixture{
		proc:       NewProcessor(receipts, categories, fetcher, extractor, nil, nil),
		receipts:   receipts,
		categories: categories,
		user:       user,
		imageURL:   imageSrv.URL + "/receipt.jpg",
	}
}

func (f *pipelineFixture) createPending(t *testing.T, mutate func(*entity.Receipt)) *entity.Receipt {
	t.Helper()
	rec := &entity.Receipt{
		UserID:   f.user.ID,
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ImageURL: f.imageURL,
	}
	if mutate != nil {
		mutate(rec)
	}
	if err := f.receipts.Create(context.Background(), rec); err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return rec
}

func TestProcessCompletesWithVisionBackend(t *testing.T) {
	vision := &stubVision{response: "```json\n" + `{
		"merchant": "Whole Foods Market",
		"date": "2025-03-10",
		"total": 84.12,
		"tax": 6.50,
		"subtotal": 77.62,
		"items": [{"name": "Groceries", "price": 77.62, "quantity": 1}],
		"paymentMethod": "VISA",
		"rawText": "WHOLE FOODS MARKET ..."
	}` + "\n```"}
	f := newFixture(t, vision)
	rec := f.createPending(t, nil)

	if err := f.proc.Process(context.Background(), rec.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := f.receipts.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ExtractionStatus != constants.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.ExtractionStatus)
	}
	if got.Merchant != "Whole Foods Market" {
		t.Errorf("merchant = %q", got.Merchant)
	}
	if got.Total != 84.12 {
		t.Errorf("total = %v", got.Total)
	}
	if got.Tax != 6.50 {
		t.Errorf("tax = %v", got.Tax)
	}
	if got.CategoryID == nil {
		t.Error("expected keyword categorization to assign a category")
	}
	if len(got.OCRData) == 0 {
		t.Error("expected raw extraction payload to be stored")
	}

	cats, err := f.categories.ListForUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) < len(constants.DefaultCategories) {
		t.Errorf("defaults not seeded: %d categories", len(cats))
	}
}

func TestProcessMarksFailedOnBackendError(t *testing.T) {
	vision := &stubVision{err: errors.New("quota exceeded")}
	f := newFixture(t, vision)
	rec := f.createPending(t, nil)

	if err := f.proc.Process(context.Background(), rec.ID); err == nil {
		t.Fatal("expected error")
	}

	got, err := f.receipts.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ExtractionStatus != constants.StatusFailed {
		t.Errorf("status = %s, want FAILED", got.ExtractionStatus)
	}
}

func TestProcessClaimSemantics(t *testing.T) {
	vision := &stubVision{response: `{"merchant":"Cafe","date":"2025-03-10","total":5,"rawText":"x"}`}
	f := newFixture(t, vision)

	t.Run("completed receipt rejects reprocessing", func(t *testing.T) {
		rec := f.createPending(t, nil)
		if err := f.proc.Process(context.Background(), rec.ID); err != nil {
			t.Fatalf("first process: %v", err)
		}
		err := f.proc.Process(context.Background(), rec.ID)
		if !errors.Is(err, apperr.ErrReceiptCompleted) {
			t.Errorf("second process error = %v, want RECEIPT_COMPLETED", err)
		}
	})

	t.Run("failed receipt can be retried", func(t *testing.T) {
		rec := f.createPending(t, nil)
		vision.response, vision.err = "", errors.New("timeout")
		if err := f.proc.Process(context.Background(), rec.ID); err == nil {
			t.Fatal("expected first attempt to fail")
		}
		vision.response, vision.err = `{"merchant":"Cafe","date":"2025-03-10","total":5,"rawText":"x"}`, nil
		if err := f.proc.Process(context.Background(), rec.ID); err != nil {
			t.Fatalf("retry after FAILED: %v", err)
		}
		got, err := f.receipts.Get(context.Background(), rec.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got.ExtractionStatus != constants.StatusCompleted {
			t.Errorf("status = %s, want COMPLETED", got.ExtractionStatus)
		}
	})

	t.Run("unknown receipt", func(t *testing.T) {
		err := f.proc.Process(context.Background(), "119f0c86-0000-0000-0000-000000000000")
		if !errors.Is(err, apperr.ErrReceiptNotFound) {
			t.Errorf("error = %v, want RECEIPT_NOT_FOUND", err)
		}
	})
}

func TestProcessPreservesUserEnteredFields(t *testing.T) {
	vision := &stubVision{response: `{"merchant":"","date":null,"total":0,"tax":1.25,"rawText":"partial"}`}
	f := newFixture(t, vision)

	rec := f.createPending(t, func(r *entity.Receipt) {
		r.Merchant = "Hand Entered Deli"
		r.Date = time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
		r.Total = 42.00
	})

	if err := f.proc.Process(context.Background(), rec.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, err := f.receipts.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Merchant != "Hand Entered Deli" {
		t.Errorf("merchant overwritten: %q", got.Merchant)
	}
	if got.Total != 42.00 {
		t.Errorf("total overwritten: %v", got.Total)
	}
	if got.Tax != 1.25 {
		t.Errorf("tax = %v, want extracted 1.25", got.Tax)
	}
	// No extracted merchant means nothing to categorize against.
	if got.CategoryID != nil {
		t.Errorf("category assigned without an extracted merchant: %v", *got.CategoryID)
	}
}

func TestProcessReplacesExtractionOwnedFields(t *testing.T) {
	vision := &stubVision{response: `{"merchant":"Cafe","date":"2025-03-10","total":5,"rawText":"x"}`}
	f := newFixture(t, vision)

	sub := 9.99
	pay := "AMEX"
	rec := f.createPending(t, func(r *entity.Receipt) {
		r.Subtotal = &sub
		r.PaymentMethod = &pay
	})

	if err := f.proc.Process(context.Background(), rec.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, err := f.receipts.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	// Subtotal and payment method follow the extraction even when it saw none.
	if got.Subtotal != nil {
		t.Errorf("subtotal = %v, want cleared", *got.Subtotal)
	}
	if got.PaymentMethod != nil {
		t.Errorf("payment method = %q, want cleared", *got.PaymentMethod)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(apperr.ErrReceiptProcessing) {
		t.Error("in-flight claim must not be retryable")
	}
	if Retryable(apperr.ErrReceiptCompleted) {
		t.Error("completed receipt must not be retryable")
	}
	if !Retryable(apperr.ErrExtractionFailed) {
		t.Error("extraction failure must be retryable")
	}
}
