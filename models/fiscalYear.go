package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// FiscalYear is a named posting window. Postings land in the year whose range
// covers their date; a locked year rejects all postings.
type FiscalYear struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"type:char(36);index:idx_fiscal_year_name,unique" json:"business_id"`
	Name       string    `gorm:"size:100;not null;index:idx_fiscal_year_name,unique" json:"name" binding:"required"`
	StartDate  time.Time `gorm:"type:date;not null" json:"start_date" binding:"required"`
	EndDate    time.Time `gorm:"type:date;not null" json:"end_date" binding:"required"`
	Locked     *bool     `gorm:"not null;default:false" json:"locked"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFiscalYear struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// ContainsDate reports whether d falls inside the year, comparing dates only.
func (fy *FiscalYear) ContainsDate(d time.Time) bool {
	day := utils.DateOnly(d)
	return !day.Before(utils.DateOnly(fy.StartDate)) && !day.After(utils.DateOnly(fy.EndDate))
}

func (fy *FiscalYear) IsLocked() bool {
	return fy.Locked != nil && *fy.Locked
}

func CreateFiscalYear(ctx context.Context, input *NewFiscalYear) (*FiscalYear, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	start := utils.DateOnly(input.StartDate)
	end := utils.DateOnly(input.EndDate)
	if !start.Before(end) {
		return nil, fmt.Errorf("start date must precede end date: %w", utils.ErrorInvalidRange)
	}
	if err := utils.ValidateUnique[FiscalYear](ctx, "name", input.Name); err != nil {
		return nil, err
	}

	// Years must not overlap. Two ranges overlap when each starts before the
	// other ends.
	overlapping, err := utils.ResourceCountWhere[FiscalYear](ctx,
		"start_date <= ? AND end_date >= ?", end, start)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, fmt.Errorf("fiscal year overlaps an existing year: %w", utils.ErrorInvalidRange)
	}

	fiscalYear := FiscalYear{
		BusinessId: businessId,
		Name:       input.Name,
		StartDate:  start,
		EndDate:    end,
		Locked:     utils.NewFalse(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&fiscalYear).Error; err != nil {
		return nil, err
	}
	return &fiscalYear, nil
}

// LockFiscalYear closes the year to postings. Locking an already locked year
// is a no-op.
func LockFiscalYear(ctx context.Context, id uint) (*FiscalYear, error) {
	return setFiscalYearLocked(ctx, id, true)
}

// UnlockFiscalYear reopens the year. Unlocking an open year is a no-op.
func UnlockFiscalYear(ctx context.Context, id uint) (*FiscalYear, error) {
	return setFiscalYearLocked(ctx, id, false)
}

func setFiscalYearLocked(ctx context.Context, id uint, locked bool) (*FiscalYear, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	fiscalYear, err := utils.FetchModel[FiscalYear](ctx, id)
	if err != nil {
		return nil, err
	}
	if fiscalYear.IsLocked() == locked {
		return fiscalYear, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(fiscalYear).Update("Locked", locked).Error; err != nil {
		return nil, err
	}
	return fiscalYear, nil
}

// FindFiscalYearByDate resolves the year covering a posting date inside a
// transaction. Missing coverage is an InvalidRange, not a NotFound: the date
// is legal, the calendar just does not reach it.
func FindFiscalYearByDate(ctx context.Context, tx *gorm.DB, date time.Time) (*FiscalYear, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	day := utils.DateOnly(date)
	var fiscalYear FiscalYear
	err := tx.WithContext(ctx).
		Where("business_id = ? AND start_date <= ? AND end_date >= ?", businessId, day, day).
		First(&fiscalYear).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no fiscal year covers %s: %w",
				day.Format("2006-01-02"), utils.ErrorInvalidRange)
		}
		return nil, err
	}
	return &fiscalYear, nil
}

// ValidatePostingDate resolves the fiscal year for a date and rejects a
// locked one. Every journal posting goes through here.
func ValidatePostingDate(ctx context.Context, tx *gorm.DB, date time.Time) (*FiscalYear, error) {
	fiscalYear, err := FindFiscalYearByDate(ctx, tx, date)
	if err != nil {
		return nil, err
	}
	if fiscalYear.IsLocked() {
		return nil, fmt.Errorf("fiscal year %s is locked: %w", fiscalYear.Name, utils.ErrorForbidden)
	}
	return fiscalYear, nil
}

func GetFiscalYear(ctx context.Context, id uint) (*FiscalYear, error) {
	return utils.FetchModel[FiscalYear](ctx, id)
}

func GetFiscalYears(ctx context.Context) ([]FiscalYear, error) {
	return utils.FetchAllModels[FiscalYear](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Order("start_date")
	})
}
