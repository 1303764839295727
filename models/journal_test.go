package models

import (
	"errors"
	"testing"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestValidateJournalLinesBalanced(t *testing.T) {
	total, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("100")},
		{AccountId: 2, Credit: money("60")},
		{AccountId: 3, Credit: money("40")},
	})
	if err != nil {
		t.Fatalf("ValidateJournalLines: %v", err)
	}
	if total.Cmp(money("100")) != 0 {
		t.Fatalf("expected total 100, got %s", total)
	}
}

func TestValidateJournalLinesUnbalanced(t *testing.T) {
	_, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("100")},
		{AccountId: 2, Credit: money("99.50")},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced, got %v", err)
	}
}

func TestValidateJournalLinesToleratesRoundingResidue(t *testing.T) {
	// A one-cent residue from rounding must still balance.
	total, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("33.33")},
		{AccountId: 2, Credit: money("33.34")},
	})
	if err != nil {
		t.Fatalf("expected residue within tolerance to pass, got %v", err)
	}
	if total.Cmp(money("33.33")) != 0 {
		t.Fatalf("expected total 33.33, got %s", total)
	}
}

func TestValidateJournalLinesNeedsTwoLines(t *testing.T) {
	_, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("100")},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced for a single line, got %v", err)
	}
}

func TestValidateJournalLinesOneSidePerLine(t *testing.T) {
	_, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("50"), Credit: money("50")},
		{AccountId: 2, Credit: money("0")},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced for a two-sided line, got %v", err)
	}

	_, err = ValidateJournalLines([]NewJournalLine{
		{AccountId: 1},
		{AccountId: 2, Credit: money("10")},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced for an empty line, got %v", err)
	}
}

func TestValidateJournalLinesRejectsNegativeAmounts(t *testing.T) {
	_, err := ValidateJournalLines([]NewJournalLine{
		{AccountId: 1, Debit: money("-100")},
		{AccountId: 2, Credit: money("-100")},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced for negative amounts, got %v", err)
	}
}
