// Package overdue periodically reminds users about borrowings at or past
// their expected return date. The sweep only reads borrowing state; delivery
// failures are logged and never block borrow/return traffic.
package overdue

import (
	"context"
	"log/slog"
	"time"

	borrowingrepo "booklibrary/repository/borrowing"
	telegramrepo "booklibrary/repository/telegram"
)

const reminderText = "Your borrowing is overdue!"

type Repo interface {
	ListDueSoon(ctx context.Context, cutoff time.Time) ([]borrowingrepo.DueRow, error)
}

type Scanner struct {
	r        Repo
	notifier telegramrepo.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewScanner(r Repo, notifier telegramrepo.Notifier, log *slog.Logger) *Scanner {
	return &Scanner{r: r, notifier: notifier, log: log, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := s.Sweep(ctx); err != nil {
			s.log.Error("overdue sweep failed", "err", err)
		} else if n > 0 {
			s.log.Info("overdue sweep done", "notified", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep notifies every eligible user once per invocation. Repeated reminders
// across sweeps are expected; there is no cross-sweep deduplication.
func (s *Scanner) Sweep(ctx context.Context) (int, error) {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, 1)

	rows, err := s.r.ListDueSoon(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, row := range rows {
		if !row.NotificationsEnabled || row.TelegramChatID == "" {
			continue
		}
		if err := s.notifier.Notify(ctx, row.TelegramChatID, reminderText); err != nil {
			s.log.Warn("overdue reminder failed",
				"borrowing_id", row.BorrowingID, "user_id", row.UserID, "err", err)
			continue
		}
		notified++
	}
	return notified, nil
}
