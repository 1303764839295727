package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
)

type TrialBalanceRow struct {
	AccountId   uint                   `json:"account_id"`
	Code        string                 `json:"code"`
	Name        string                 `json:"name"`
	MainType    models.AccountMainType `json:"main_type"`
	TotalDebit  decimal.Decimal        `json:"total_debit"`
	TotalCredit decimal.Decimal        `json:"total_credit"`
	Balance     decimal.Decimal        `json:"balance"`
}

type TrialBalanceReport struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// GetTrialBalance sums every account's postings up to a date. Because each
// journal balances, the report's debit and credit totals always match.
func GetTrialBalance(ctx context.Context, asOf time.Time) (*TrialBalanceReport, error) {
	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	db := config.GetDB()
	var rows []TrialBalanceRow
	err := db.WithContext(ctx).
		Table("accounts").
		Select(`accounts.id AS account_id, accounts.code, accounts.name, accounts.main_type,
			COALESCE(SUM(journal_lines.debit), 0) AS total_debit,
			COALESCE(SUM(journal_lines.credit), 0) AS total_credit`).
		Joins(`LEFT JOIN (journal_lines JOIN journals
				ON journals.id = journal_lines.journal_id AND journals.date <= ?)
			ON journal_lines.account_id = accounts.id`, utils.DateOnly(asOf)).
		Where("accounts.business_id = ?", businessId).
		Group("accounts.id, accounts.code, accounts.name, accounts.main_type").
		Order("accounts.code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := TrialBalanceReport{AsOf: utils.DateOnly(asOf)}
	for i := range rows {
		row := &rows[i]
		if row.MainType.IsDebitNormal() {
			row.Balance = row.TotalDebit.Sub(row.TotalCredit)
		} else {
			row.Balance = row.TotalCredit.Sub(row.TotalDebit)
		}
		report.TotalDebit = report.TotalDebit.Add(row.TotalDebit)
		report.TotalCredit = report.TotalCredit.Add(row.TotalCredit)
	}
	report.Rows = rows
	return &report, nil
}
