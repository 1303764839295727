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

type GeneralLedgerEntry struct {
	Date        time.Time       `json:"date"`
	Number      string          `json:"number"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

type GeneralLedgerReport struct {
	AccountId      uint                 `json:"account_id"`
	Code           string               `json:"code"`
	Name           string               `json:"name"`
	FromDate       time.Time            `json:"from_date"`
	ToDate         time.Time            `json:"to_date"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	Entries        []GeneralLedgerEntry `json:"entries"`
	ClosingBalance decimal.Decimal      `json:"closing_balance"`
}

// GetGeneralLedger lists one account's postings over a range with a running
// balance, signed by the account's normal side.
func GetGeneralLedger(ctx context.Context, accountId uint, from, to time.Time) (*GeneralLedgerReport, error) {
	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	account, err := models.GetAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}
	fromDate := utils.DateOnly(from)
	toDate := utils.DateOnly(to)
	if fromDate.After(toDate) {
		return nil, fmt.Errorf("from date is after to date: %w", utils.ErrorInvalidRange)
	}

	db := config.GetDB()

	type sums struct {
		TotalDebit  decimal.Decimal
		TotalCredit decimal.Decimal
	}
	var opening sums
	err = db.WithContext(ctx).
		Table("journal_lines").
		Select(`COALESCE(SUM(journal_lines.debit), 0) AS total_debit,
			COALESCE(SUM(journal_lines.credit), 0) AS total_credit`).
		Joins("JOIN journals ON journals.id = journal_lines.journal_id").
		Where("journal_lines.business_id = ? AND journal_lines.account_id = ? AND journals.date < ?",
			businessId, accountId, fromDate).
		Scan(&opening).Error
	if err != nil {
		return nil, err
	}

	type lineRow struct {
		Date        time.Time
		Number      string
		Description string
		Debit       decimal.Decimal
		Credit      decimal.Decimal
	}
	var lines []lineRow
	err = db.WithContext(ctx).
		Table("journal_lines").
		Select(`journals.date, journals.number, journal_lines.description,
			journal_lines.debit, journal_lines.credit`).
		Joins("JOIN journals ON journals.id = journal_lines.journal_id").
		Where("journal_lines.business_id = ? AND journal_lines.account_id = ? AND journals.date BETWEEN ? AND ?",
			businessId, accountId, fromDate, toDate).
		Order("journals.date, journals.id, journal_lines.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	report := GeneralLedgerReport{
		AccountId: account.ID,
		Code:      account.Code,
		Name:      account.Name,
		FromDate:  fromDate,
		ToDate:    toDate,
	}
	if account.MainType.IsDebitNormal() {
		report.OpeningBalance = opening.TotalDebit.Sub(opening.TotalCredit)
	} else {
		report.OpeningBalance = opening.TotalCredit.Sub(opening.TotalDebit)
	}

	balance := report.OpeningBalance
	for _, line := range lines {
		if account.MainType.IsDebitNormal() {
			balance = balance.Add(line.Debit).Sub(line.Credit)
		} else {
			balance = balance.Add(line.Credit).Sub(line.Debit)
		}
		report.Entries = append(report.Entries, GeneralLedgerEntry{
			Date:        line.Date,
			Number:      line.Number,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Balance:     balance,
		})
	}
	report.ClosingBalance = balance
	return &report, nil
}
