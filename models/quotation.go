package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quotation is a priced offer to a customer. It carries no accounting or
// stock effect; accepting it only unlocks conversion to a sales order.
type Quotation struct {
	ID           uint            `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"type:char(36);index:idx_quotation_number,unique" json:"business_id"`
	Number       string          `gorm:"size:50;not null;index:idx_quotation_number,unique" json:"number"`
	Status       QuotationStatus `gorm:"type:enum('Draft','Sent','Accepted','Rejected','Expired','Cancelled');not null;default:'Draft'" json:"status"`
	Date         time.Time       `gorm:"type:date;not null" json:"date"`
	ValidUntil   *time.Time      `gorm:"type:date" json:"valid_until"`
	CustomerName string          `gorm:"size:255;not null" json:"customer_name"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_rate"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Notes        string          `gorm:"size:500" json:"notes"`
	// ConvertedOrderId pins the sales order this quotation became. A set
	// value blocks further conversions.
	ConvertedOrderId *uint           `gorm:"index" json:"converted_order_id"`
	Lines            []QuotationLine `gorm:"foreignKey:QuotationId" json:"lines"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type QuotationLine struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"type:char(36);index" json:"business_id"`
	QuotationId uint            `gorm:"not null;index" json:"quotation_id"`
	ProductId   uint            `gorm:"not null;index" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewQuotationLine struct {
	ProductId uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
}

type NewQuotation struct {
	Date         time.Time          `json:"date" binding:"required"`
	ValidUntil   *time.Time         `json:"valid_until"`
	CustomerName string             `json:"customer_name" binding:"required"`
	TaxRate      decimal.Decimal    `json:"tax_rate"`
	Notes        string             `json:"notes"`
	Lines        []NewQuotationLine `json:"lines" binding:"required,min=1"`
}

func buildQuotationLines(ctx context.Context, businessId string, taxRate decimal.Decimal, inputs []NewQuotationLine) ([]QuotationLine, decimal.Decimal, decimal.Decimal, error) {
	if taxRate.IsNegative() {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("tax rate cannot be negative")
	}
	subtotal := decimal.Zero
	lines := make([]QuotationLine, 0, len(inputs))
	for i, line := range inputs {
		if !line.Quantity.IsPositive() {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if line.Rate.IsNegative() {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("line %d: rate cannot be negative", i+1)
		}
		if _, err := utils.FetchModel[Product](ctx, line.ProductId); err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}
		amount := utils.CalculateLineAmount(line.Quantity, line.Rate)
		subtotal = subtotal.Add(amount)
		lines = append(lines, QuotationLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
			Rate:       line.Rate,
			Amount:     amount,
		})
	}
	subtotal = utils.RoundMoney(subtotal)
	taxAmount := utils.CalculateTaxAmount(subtotal, taxRate)
	return lines, subtotal, taxAmount, nil
}

func CreateQuotation(ctx context.Context, input *NewQuotation) (*Quotation, error) {
	if err := ValidateModuleEnabled(ctx, ModuleSales); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if input.ValidUntil != nil && utils.DateOnly(*input.ValidUntil).Before(utils.DateOnly(input.Date)) {
		return nil, fmt.Errorf("valid-until precedes quotation date: %w", utils.ErrorInvalidRange)
	}
	lines, subtotal, taxAmount, err := buildQuotationLines(ctx, businessId, input.TaxRate, input.Lines)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := NextDocumentNumber(ctx, tx, DocumentTypeQuotation)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	quotation := Quotation{
		BusinessId:   businessId,
		Number:       number,
		Status:       QuotationStatusDraft,
		Date:         utils.DateOnly(input.Date),
		ValidUntil:   input.ValidUntil,
		CustomerName: input.CustomerName,
		TaxRate:      input.TaxRate,
		Subtotal:     subtotal,
		TaxAmount:    taxAmount,
		Total:        subtotal.Add(taxAmount),
		Notes:        input.Notes,
		Lines:        lines,
	}
	if err := tx.WithContext(ctx).Create(&quotation).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

func transitionQuotation(ctx context.Context, id uint, target QuotationStatus) (*Quotation, error) {
	if err := ValidateModuleEnabled(ctx, ModuleSales); err != nil {
		return nil, err
	}
	quotation, err := utils.FetchModel[Quotation](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !quotation.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("quotation %s cannot go from %s to %s: %w",
			quotation.Number, quotation.Status, target, utils.ErrorInvalidState)
	}
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Quotation{}).
		Where("id = ? AND status = ?", quotation.ID, quotation.Status).
		Update("status", target)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("quotation %s was modified concurrently: %w", quotation.Number, utils.ErrorConflict)
	}
	quotation.Status = target
	return quotation, nil
}

func SendQuotation(ctx context.Context, id uint) (*Quotation, error) {
	return transitionQuotation(ctx, id, QuotationStatusSent)
}

// AcceptQuotation marks a sent quotation accepted, provided its validity
// window has not passed.
func AcceptQuotation(ctx context.Context, id uint) (*Quotation, error) {
	quotation, err := utils.FetchModel[Quotation](ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation.ValidUntil != nil && utils.DateOnly(time.Now()).After(utils.DateOnly(*quotation.ValidUntil)) {
		return nil, fmt.Errorf("quotation %s validity has passed: %w", quotation.Number, utils.ErrorInvalidState)
	}
	return transitionQuotation(ctx, id, QuotationStatusAccepted)
}

func RejectQuotation(ctx context.Context, id uint) (*Quotation, error) {
	return transitionQuotation(ctx, id, QuotationStatusRejected)
}

func MarkQuotationExpired(ctx context.Context, id uint) (*Quotation, error) {
	return transitionQuotation(ctx, id, QuotationStatusExpired)
}

func CancelQuotation(ctx context.Context, id uint) (*Quotation, error) {
	return transitionQuotation(ctx, id, QuotationStatusCancelled)
}

func GetQuotation(ctx context.Context, id uint) (*Quotation, error) {
	return utils.FetchModel[Quotation](ctx, id, "Lines")
}

func GetQuotations(ctx context.Context, status *QuotationStatus) ([]Quotation, error) {
	return utils.FetchAllModels[Quotation](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
