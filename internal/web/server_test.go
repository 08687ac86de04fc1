package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/leitner/internal/cardhash"
	"github.com/conorfennell/leitner/internal/domain"
	"github.com/conorfennell/leitner/internal/leitner"
	"github.com/conorfennell/leitner/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(db, leitner.DefaultIntervals(), t.TempDir()), db
}

func seedCard(t *testing.T, db *storage.DB, question string, due time.Time) string {
	t.Helper()
	card := domain.Card{
		Question: question,
		Answer:   "answer to " + question,
		Subject:  "maths",
		Topic:    "algebra",
	}
	card.Hash = cardhash.Hash(card)
	if err := db.UpsertSubject(card.Subject); err != nil {
		t.Fatalf("UpsertSubject() returned an unexpected error: %v", err)
	}
	if err := db.InsertCard(card, 0, due); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}
	return card.Hash
}

func do(t *testing.T, srv *Server, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestDeckView(t *testing.T) {
	srv, db := newTestServer(t)
	seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, -1))
	seedCard(t, db, "What is 3+3?", time.Now().AddDate(0, 0, 5))

	rec := do(t, srv, http.MethodGet, "/deck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /deck status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "1 due of 2") {
		t.Errorf("deck view missing due/total counts: %s", body)
	}
}

func TestStudyFlow(t *testing.T) {
	srv, db := newTestServer(t)
	hash := seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, -1))

	rec := do(t, srv, http.MethodPost, "/study", url.Values{})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /study status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "What is 2+2?") {
		t.Fatalf("study did not render the card front: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/review/answer/"+hash, nil)
	if !strings.Contains(rec.Body.String(), "answer to What is 2+2?") {
		t.Fatalf("answer view missing the answer: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/review/"+hash, url.Values{"result": {"correct"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /review status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Session complete") || !strings.Contains(body, "1 correct, 0 incorrect, 1 reviewed") {
		t.Fatalf("expected completion tally, got: %s", body)
	}

	// The answer was persisted: box 2, due two days out.
	card, err := db.FindCardByHash(hash)
	if err != nil {
		t.Fatalf("FindCardByHash() returned an unexpected error: %v", err)
	}
	if card.Box != 2 {
		t.Errorf("persisted box = %d, want 2", card.Box)
	}
}

func TestCardCounterTracksDeckSize(t *testing.T) {
	srv, db := newTestServer(t)
	first := seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, -1))
	second := seedCard(t, db, "What is 3+3?", time.Now().AddDate(0, 0, -1))

	rec := do(t, srv, http.MethodPost, "/study", url.Values{})
	body := rec.Body.String()
	if !strings.Contains(body, "Card 1 of 2") {
		t.Fatalf("expected counter Card 1 of 2, got: %s", body)
	}

	current := first
	if strings.Contains(body, "What is 3+3?") {
		current = second
	}
	rec = do(t, srv, http.MethodPost, "/review/"+current, url.Values{"result": {"correct"}})
	body = rec.Body.String()
	// The denominator is the deck size, so it must not shrink as the
	// session advances.
	if !strings.Contains(body, "Card 2 of 2") {
		t.Errorf("expected counter Card 2 of 2, got: %s", body)
	}
}

func TestFrozenCardIsLockedAndSkippable(t *testing.T) {
	srv, db := newTestServer(t)
	seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, 5))

	rec := do(t, srv, http.MethodPost, "/study", url.Values{})
	if !strings.Contains(rec.Body.String(), "Locked") {
		t.Fatalf("frozen card not rendered as locked: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/review/skip", url.Values{})
	body := rec.Body.String()
	if !strings.Contains(body, "0 correct, 0 incorrect, 0 reviewed") {
		t.Fatalf("expected zero tally after skipping the only card, got: %s", body)
	}
}

func TestStudyEmptySelection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/study", url.Values{})
	if !strings.Contains(rec.Body.String(), "No cards to study") {
		t.Fatalf("expected the empty-session fragment, got: %s", rec.Body.String())
	}
}

func TestReviewRejectsStaleCard(t *testing.T) {
	srv, db := newTestServer(t)
	seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, -1))

	if rec := do(t, srv, http.MethodPost, "/study", url.Values{}); rec.Code != http.StatusOK {
		t.Fatalf("POST /study status = %d, want 200", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/review/not-the-current-card", url.Values{"result": {"correct"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("stale review status = %d, want 404", rec.Code)
	}
}

func TestReviewInvalidResult(t *testing.T) {
	srv, db := newTestServer(t)
	hash := seedCard(t, db, "What is 2+2?", time.Now().AddDate(0, 0, -1))

	do(t, srv, http.MethodPost, "/study", url.Values{})
	rec := do(t, srv, http.MethodPost, "/review/"+hash, url.Values{"result": {"maybe"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid result status = %d, want 400", rec.Code)
	}
}

func TestSingleBoxStudyValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/study", url.Values{"box": {"9"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid box status = %d, want 400", rec.Code)
	}
}
