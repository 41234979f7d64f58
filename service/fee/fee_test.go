package fee

import (
	"testing"
	"time"

	"booklibrary/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculate_OverdueFine(t *testing.T) {
	borrow := date(2025, 3, 1)
	expected := borrow.AddDate(0, 0, 1)
	actual := borrow.AddDate(0, 0, 3)

	q, err := Calculate(borrow, expected, actual, 2.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TotalDays != 3 || q.OverdueDays != 2 {
		t.Fatalf("got days total=%d overdue=%d; want 3 and 2", q.TotalDays, q.OverdueDays)
	}
	// base 3*2.00 = 6.00, overdue 2*2.00*1.5 = 6.00
	if q.Amount != 12.00 {
		t.Fatalf("got amount %.2f; want 12.00", q.Amount)
	}
	if q.Type != model.TypeFine {
		t.Fatalf("got type %s; want FINE", q.Type)
	}
}

func TestCalculate_OnTimePayment(t *testing.T) {
	borrow := date(2025, 3, 1)
	expected := borrow.AddDate(0, 0, 3)
	actual := expected

	q, err := Calculate(borrow, expected, actual, 1.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TotalDays != 3 || q.OverdueDays != 0 {
		t.Fatalf("got days total=%d overdue=%d; want 3 and 0", q.TotalDays, q.OverdueDays)
	}
	if q.Amount != 3.00 {
		t.Fatalf("got amount %.2f; want 3.00", q.Amount)
	}
	if q.Type != model.TypePayment {
		t.Fatalf("got type %s; want PAYMENT", q.Type)
	}
}

func TestCalculate_SameDayChargesOneDay(t *testing.T) {
	borrow := date(2025, 3, 1)

	q, err := Calculate(borrow, borrow.AddDate(0, 0, 7), borrow, 4.50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TotalDays != 1 {
		t.Fatalf("got total days %d; want 1", q.TotalDays)
	}
	if q.Amount != 4.50 {
		t.Fatalf("got amount %.2f; want 4.50", q.Amount)
	}
	if q.Type != model.TypePayment {
		t.Fatalf("got type %s; want PAYMENT", q.Type)
	}
}

func TestCalculate_RoundsToCents(t *testing.T) {
	borrow := date(2025, 3, 1)
	expected := borrow.AddDate(0, 0, 1)
	actual := borrow.AddDate(0, 0, 2)

	// 2*0.33 + 1*0.33*1.5 = 1.155 -> 1.16
	q, err := Calculate(borrow, expected, actual, 0.33)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Amount != 1.16 {
		t.Fatalf("got amount %v; want 1.16", q.Amount)
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	borrow := date(2025, 3, 1)

	if _, err := Calculate(time.Time{}, borrow, borrow, 1.00); err == nil {
		t.Fatal("expected error for zero borrow date")
	}
	if _, err := Calculate(borrow, borrow.AddDate(0, 0, 1), borrow, 0); err == nil {
		t.Fatal("expected error for non-positive daily fee")
	}
}
