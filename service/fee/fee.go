// Package fee computes the amount owed for a completed borrowing.
package fee

import (
	"errors"
	"math"
	"time"

	"booklibrary/model"
)

// Fines charge the daily fee at 1.5x for each overdue day.
const overdueMultiplier = 1.5

var ErrInvalidInput = errors.New("fee: missing date or non-positive daily fee")

type Quote struct {
	TotalDays   int
	OverdueDays int
	Amount      float64
	Type        model.PaymentType
}

// Calculate is deterministic and side-effect free. Dates are expected to be
// already validated as ordered (actual never before borrow); a same-day
// return still charges one day.
func Calculate(borrowDate, expectedReturn, actualReturn time.Time, dailyFee float64) (Quote, error) {
	if borrowDate.IsZero() || expectedReturn.IsZero() || actualReturn.IsZero() || dailyFee <= 0 {
		return Quote{}, ErrInvalidInput
	}

	totalDays := daysBetween(borrowDate, actualReturn)
	if totalDays < 1 {
		totalDays = 1
	}
	overdueDays := daysBetween(expectedReturn, actualReturn)
	if overdueDays < 0 {
		overdueDays = 0
	}

	amount := float64(totalDays)*dailyFee + float64(overdueDays)*dailyFee*overdueMultiplier

	q := Quote{
		TotalDays:   totalDays,
		OverdueDays: overdueDays,
		Amount:      roundCents(amount),
		Type:        model.TypePayment,
	}
	if overdueDays > 0 {
		q.Type = model.TypeFine
	}
	return q, nil
}

func daysBetween(from, to time.Time) int {
	f := dateOnly(from)
	t := dateOnly(to)
	return int(t.Sub(f).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
