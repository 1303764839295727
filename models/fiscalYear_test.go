package models

import (
	"testing"
	"time"

	"github.com/corefin/erpledger_backend/utils"
)

func TestFiscalYearContainsDate(t *testing.T) {
	fy := FiscalYear{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if !fy.ContainsDate(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("mid-year date must be inside")
	}
	if !fy.ContainsDate(fy.StartDate) {
		t.Fatalf("start date is inclusive")
	}
	if !fy.ContainsDate(fy.EndDate) {
		t.Fatalf("end date is inclusive")
	}
	// Time-of-day on the boundary day must not push the date out.
	if !fy.ContainsDate(time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("end-of-day on the last day must be inside")
	}
	if fy.ContainsDate(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day before the start must be outside")
	}
	if fy.ContainsDate(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after the end must be outside")
	}
}

func TestFiscalYearIsLocked(t *testing.T) {
	fy := FiscalYear{}
	if fy.IsLocked() {
		t.Fatalf("nil Locked must read as unlocked")
	}
	fy.Locked = utils.NewFalse()
	if fy.IsLocked() {
		t.Fatalf("explicit false must read as unlocked")
	}
	fy.Locked = utils.NewTrue()
	if !fy.IsLocked() {
		t.Fatalf("explicit true must read as locked")
	}
}
