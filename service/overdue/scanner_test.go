package overdue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	borrowingrepo "booklibrary/repository/borrowing"
)

type repoMock struct {
	rows       []borrowingrepo.DueRow
	err        error
	lastCutoff time.Time
}

func (m *repoMock) ListDueSoon(ctx context.Context, cutoff time.Time) ([]borrowingrepo.DueRow, error) {
	m.lastCutoff = cutoff
	return m.rows, m.err
}

type notifierMock struct {
	sent    []string
	failFor string
}

func (m *notifierMock) Notify(ctx context.Context, chatID, text string) error {
	if chatID == m.failFor {
		return errors.New("telegram: chat not found")
	}
	m.sent = append(m.sent, chatID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dueRow(id int64, chatID string, enabled bool) borrowingrepo.DueRow {
	return borrowingrepo.DueRow{
		BorrowingID:          id,
		UserID:               id + 100,
		BookTitle:            "Dune",
		ExpectedReturnDate:   time.Now().UTC(),
		TelegramChatID:       chatID,
		NotificationsEnabled: enabled,
	}
}

func TestSweep_NotifiesEligibleUsersOnly(t *testing.T) {
	r := &repoMock{rows: []borrowingrepo.DueRow{
		dueRow(1, "chat-1", true),
		dueRow(2, "", true),        // no chat linked
		dueRow(3, "chat-3", false), // opted out
		dueRow(4, "chat-4", true),
	}}
	n := &notifierMock{}
	s := NewScanner(r, n, testLogger())

	got, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("notified %d; want 2", got)
	}
	if len(n.sent) != 2 || n.sent[0] != "chat-1" || n.sent[1] != "chat-4" {
		t.Fatalf("unexpected recipients: %v", n.sent)
	}
}

func TestSweep_CutoffIsTomorrow(t *testing.T) {
	r := &repoMock{}
	s := NewScanner(r, &notifierMock{}, testLogger())
	s.now = func() time.Time {
		return time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	}

	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !r.lastCutoff.Equal(want) {
		t.Fatalf("cutoff=%v; want %v", r.lastCutoff, want)
	}
}

func TestSweep_DeliveryFailureDoesNotAbort(t *testing.T) {
	r := &repoMock{rows: []borrowingrepo.DueRow{
		dueRow(1, "chat-1", true),
		dueRow(2, "chat-dead", true),
		dueRow(3, "chat-3", true),
	}}
	n := &notifierMock{failFor: "chat-dead"}
	s := NewScanner(r, n, testLogger())

	got, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("notified %d; want 2 despite one failed delivery", got)
	}
}

func TestSweep_RepoError(t *testing.T) {
	r := &repoMock{err: errors.New("db down")}
	s := NewScanner(r, &notifierMock{}, testLogger())

	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error to surface")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := &repoMock{}
	s := NewScanner(r, &notifierMock{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if r.lastCutoff.IsZero() {
		t.Fatal("Run must sweep once before waiting for the first tick")
	}
}
