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

type ProfitAndLossRow struct {
	AccountId uint            `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

type ProfitAndLossReport struct {
	FiscalYearId uint               `json:"fiscal_year_id"`
	FromDate     time.Time          `json:"from_date"`
	ToDate       time.Time          `json:"to_date"`
	Income       []ProfitAndLossRow `json:"income"`
	Expenses     []ProfitAndLossRow `json:"expenses"`
	TotalIncome  decimal.Decimal    `json:"total_income"`
	TotalExpense decimal.Decimal    `json:"total_expense"`
	NetProfit    decimal.Decimal    `json:"net_profit"`
}

// GetProfitAndLoss aggregates income and expense activity over one fiscal
// year into net profit.
func GetProfitAndLoss(ctx context.Context, fiscalYearId uint) (*ProfitAndLossReport, error) {
	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	fiscalYear, err := models.GetFiscalYear(ctx, fiscalYearId)
	if err != nil {
		return nil, err
	}
	fromDate := utils.DateOnly(fiscalYear.StartDate)
	toDate := utils.DateOnly(fiscalYear.EndDate)

	type activityRow struct {
		AccountId   uint
		Code        string
		Name        string
		MainType    models.AccountMainType
		TotalDebit  decimal.Decimal
		TotalCredit decimal.Decimal
	}
	db := config.GetDB()
	var rows []activityRow
	err = db.WithContext(ctx).
		Table("accounts").
		Select(`accounts.id AS account_id, accounts.code, accounts.name, accounts.main_type,
			COALESCE(SUM(journal_lines.debit), 0) AS total_debit,
			COALESCE(SUM(journal_lines.credit), 0) AS total_credit`).
		Joins(`JOIN journal_lines ON journal_lines.account_id = accounts.id`).
		Joins(`JOIN journals ON journals.id = journal_lines.journal_id AND journals.date BETWEEN ? AND ?`,
			fromDate, toDate).
		Where("accounts.business_id = ? AND accounts.main_type IN ?",
			businessId, []models.AccountMainType{models.AccountMainTypeIncome, models.AccountMainTypeExpense}).
		Group("accounts.id, accounts.code, accounts.name, accounts.main_type").
		Order("accounts.code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := ProfitAndLossReport{FiscalYearId: fiscalYear.ID, FromDate: fromDate, ToDate: toDate}
	for _, row := range rows {
		if row.MainType == models.AccountMainTypeIncome {
			amount := row.TotalCredit.Sub(row.TotalDebit)
			report.Income = append(report.Income, ProfitAndLossRow{
				AccountId: row.AccountId, Code: row.Code, Name: row.Name, Amount: amount,
			})
			report.TotalIncome = report.TotalIncome.Add(amount)
		} else {
			amount := row.TotalDebit.Sub(row.TotalCredit)
			report.Expenses = append(report.Expenses, ProfitAndLossRow{
				AccountId: row.AccountId, Code: row.Code, Name: row.Name, Amount: amount,
			})
			report.TotalExpense = report.TotalExpense.Add(amount)
		}
	}
	report.NetProfit = report.TotalIncome.Sub(report.TotalExpense)
	return &report, nil
}
