package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal is a posted, immutable, balanced double-entry transaction. There
// are no draft journals: a journal either posts atomically with all its
// lines or does not exist.
type Journal struct {
	ID            uint                 `gorm:"primary_key" json:"id"`
	BusinessId    string               `gorm:"type:char(36);index:idx_journal_number,unique" json:"business_id"`
	Number        string               `gorm:"size:50;not null;index:idx_journal_number,unique" json:"number"`
	Date          time.Time            `gorm:"type:date;not null;index" json:"date"`
	FiscalYearId  uint                 `gorm:"not null;index" json:"fiscal_year_id"`
	Description   string               `gorm:"size:500" json:"description"`
	ReferenceType AccountReferenceType `gorm:"size:50;not null;default:'Manual'" json:"reference_type"`
	ReferenceId   *uint                `gorm:"index" json:"reference_id"`
	TotalAmount   decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Lines         []JournalLine        `gorm:"foreignKey:JournalId" json:"lines"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type JournalLine struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"type:char(36);index" json:"business_id"`
	JournalId   uint            `gorm:"not null;index" json:"journal_id"`
	AccountId   uint            `gorm:"not null;index" json:"account_id"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
	Description string          `gorm:"size:500" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewJournalLine struct {
	AccountId   uint            `json:"account_id" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type NewJournal struct {
	FiscalYearId uint             `json:"fiscal_year_id" binding:"required"`
	Date         time.Time        `json:"date" binding:"required"`
	Description  string           `json:"description"`
	Lines        []NewJournalLine `json:"lines" binding:"required,min=2"`
}

// JournalPostInput is the internal posting request shared by manual journals
// and document postings. Manual entries name their fiscal year; document
// postings leave FiscalYearId nil and the year is resolved from the date.
type JournalPostInput struct {
	FiscalYearId  *uint
	Date          time.Time
	Description   string
	ReferenceType AccountReferenceType
	ReferenceId   *uint
	Lines         []NewJournalLine
}

// ValidateJournalLines checks line shape and balance without touching the
// database: at least two lines, each line on exactly one side with a
// positive amount, and total debits equal to total credits. Returns the
// balanced total.
func ValidateJournalLines(lines []NewJournalLine) (decimal.Decimal, error) {
	if len(lines) < 2 {
		return decimal.Zero, fmt.Errorf("a journal needs at least two lines: %w", utils.ErrorUnbalanced)
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range lines {
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, fmt.Errorf("line %d: amounts cannot be negative: %w", i+1, utils.ErrorUnbalanced)
		}
		if debitSet == creditSet {
			return decimal.Zero, fmt.Errorf("line %d: exactly one of debit or credit must be set: %w", i+1, utils.ErrorUnbalanced)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !utils.AmountsEqual(totalDebit, totalCredit) {
		return decimal.Zero, fmt.Errorf("debits %s do not equal credits %s: %w",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2), utils.ErrorUnbalanced)
	}
	return utils.RoundMoney(totalDebit), nil
}

// PostJournalTx posts a balanced journal inside the caller's transaction.
// This is the only path that writes journal rows; manual journals and every
// document posting go through it. Validation order: line shape and balance,
// account existence and activity, fiscal year resolution and lock, then the
// atomic insert with a freshly issued number.
func PostJournalTx(ctx context.Context, tx *gorm.DB, input *JournalPostInput) (*Journal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	total, err := ValidateJournalLines(input.Lines)
	if err != nil {
		return nil, err
	}

	for _, line := range input.Lines {
		var account Account
		err := tx.WithContext(ctx).
			Where("business_id = ? AND id = ?", businessId, line.AccountId).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("account %d: %w", line.AccountId, utils.ErrorRecordNotFound)
			}
			return nil, err
		}
		if account.Active == nil || !*account.Active {
			return nil, fmt.Errorf("account %s is inactive: %w", account.Code, utils.ErrorInvalidState)
		}
	}

	var fiscalYear *FiscalYear
	if input.FiscalYearId != nil {
		var year FiscalYear
		err = tx.WithContext(ctx).
			Where("business_id = ? AND id = ?", businessId, *input.FiscalYearId).
			First(&year).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("fiscal year %d: %w", *input.FiscalYearId, utils.ErrorRecordNotFound)
			}
			return nil, err
		}
		fiscalYear = &year
		if fiscalYear.IsLocked() {
			return nil, fmt.Errorf("fiscal year %s is locked: %w", fiscalYear.Name, utils.ErrorForbidden)
		}
		if !fiscalYear.ContainsDate(input.Date) {
			return nil, fmt.Errorf("date %s is outside fiscal year %s: %w",
				utils.DateOnly(input.Date).Format("2006-01-02"), fiscalYear.Name, utils.ErrorInvalidRange)
		}
	} else {
		fiscalYear, err = ValidatePostingDate(ctx, tx, input.Date)
		if err != nil {
			return nil, err
		}
	}

	number, err := NextDocumentNumber(ctx, tx, DocumentTypeJournal)
	if err != nil {
		return nil, err
	}

	referenceType := input.ReferenceType
	if referenceType == "" {
		referenceType = AccountReferenceTypeManual
	}
	journal := Journal{
		BusinessId:    businessId,
		Number:        number,
		Date:          utils.DateOnly(input.Date),
		FiscalYearId:  fiscalYear.ID,
		Description:   input.Description,
		ReferenceType: referenceType,
		ReferenceId:   input.ReferenceId,
		TotalAmount:   total,
	}
	for _, line := range input.Lines {
		journal.Lines = append(journal.Lines, JournalLine{
			BusinessId:  businessId,
			AccountId:   line.AccountId,
			Debit:       utils.RoundMoney(line.Debit),
			Credit:      utils.RoundMoney(line.Credit),
			Description: line.Description,
		})
	}
	if err := tx.WithContext(ctx).Create(&journal).Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

// CreateJournal posts a manual journal in its own transaction.
func CreateJournal(ctx context.Context, input *NewJournal) (*Journal, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	db := config.GetDB()
	tx := db.Begin()
	journal, err := PostJournalTx(ctx, tx, &JournalPostInput{
		FiscalYearId:  &input.FiscalYearId,
		Date:          input.Date,
		Description:   input.Description,
		ReferenceType: AccountReferenceTypeManual,
		Lines:         input.Lines,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return journal, nil
}

func GetJournal(ctx context.Context, id uint) (*Journal, error) {
	return utils.FetchModel[Journal](ctx, id, "Lines")
}

type LedgerFilter struct {
	AccountId    *uint      `form:"account_id"`
	FiscalYearId *uint      `form:"fiscal_year_id"`
	FromDate     *time.Time `form:"from_date"`
	ToDate       *time.Time `form:"to_date"`
	Limit        int        `form:"limit"`
	Offset       int        `form:"offset"`
}

// Balance is the running balance on the account's normal side; it is only
// filled in when the query names a single account.
type LedgerEntry struct {
	JournalId     uint                 `json:"journal_id"`
	Number        string               `json:"number"`
	Date          time.Time            `json:"date"`
	AccountId     uint                 `json:"account_id"`
	AccountCode   string               `json:"account_code"`
	AccountName   string               `json:"account_name"`
	Description   string               `json:"description"`
	ReferenceType AccountReferenceType `json:"reference_type"`
	Debit         decimal.Decimal      `json:"debit"`
	Credit        decimal.Decimal      `json:"credit"`
	Balance       decimal.Decimal      `json:"balance"`
}

func ledgerBaseQuery(ctx context.Context, db *gorm.DB, businessId string, filter *LedgerFilter) *gorm.DB {
	query := db.WithContext(ctx).
		Table("journal_lines").
		Joins("JOIN journals ON journals.id = journal_lines.journal_id").
		Joins("JOIN accounts ON accounts.id = journal_lines.account_id").
		Where("journal_lines.business_id = ?", businessId)
	if filter.AccountId != nil {
		query = query.Where("journal_lines.account_id = ?", *filter.AccountId)
	}
	if filter.FiscalYearId != nil {
		query = query.Where("journals.fiscal_year_id = ?", *filter.FiscalYearId)
	}
	if filter.FromDate != nil {
		query = query.Where("journals.date >= ?", utils.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("journals.date <= ?", utils.DateOnly(*filter.ToDate))
	}
	return query
}

// GetLedger lists journal lines joined with their journal and account,
// ordered by date then posting order. When the filter names one account the
// entries also carry that account's running balance, seeded from the rows
// the offset skipped.
func GetLedger(ctx context.Context, filter *LedgerFilter) ([]LedgerEntry, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, fmt.Errorf("from date is after to date: %w", utils.ErrorInvalidRange)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	db := config.GetDB()
	var entries []LedgerEntry
	err := ledgerBaseQuery(ctx, db, businessId, filter).
		Select(`journals.id AS journal_id, journals.number, journals.date,
			journal_lines.account_id, accounts.code AS account_code, accounts.name AS account_name,
			journal_lines.description, journals.reference_type,
			journal_lines.debit, journal_lines.credit`).
		Order("journals.date, journals.id, journal_lines.id").
		Limit(limit).Offset(filter.Offset).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	if filter.AccountId != nil {
		account, err := utils.FetchModel[Account](ctx, *filter.AccountId)
		if err != nil {
			return nil, err
		}
		balance := decimal.Zero
		if filter.Offset > 0 {
			head := ledgerBaseQuery(ctx, db, businessId, filter).
				Select("journal_lines.debit, journal_lines.credit").
				Order("journals.date, journals.id, journal_lines.id").
				Limit(filter.Offset)
			var opening struct {
				Debit  decimal.Decimal
				Credit decimal.Decimal
			}
			err := db.WithContext(ctx).
				Table("(?) AS head", head).
				Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
				Scan(&opening).Error
			if err != nil {
				return nil, err
			}
			balance = opening.Debit.Sub(opening.Credit)
			if !account.MainType.IsDebitNormal() {
				balance = balance.Neg()
			}
		}
		for i := range entries {
			if account.MainType.IsDebitNormal() {
				balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
			} else {
				balance = balance.Add(entries[i].Credit).Sub(entries[i].Debit)
			}
			entries[i].Balance = balance
		}
	}
	return entries, nil
}
