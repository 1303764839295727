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

// SalesOrder is a customer commitment. Fulfilling it issues stock; invoicing
// it bills the customer. Orders convert from accepted quotations or are
// created directly.
type SalesOrder struct {
	ID           uint             `gorm:"primary_key" json:"id"`
	BusinessId   string           `gorm:"type:char(36);index:idx_so_number,unique" json:"business_id"`
	Number       string           `gorm:"size:50;not null;index:idx_so_number,unique" json:"number"`
	Status       SalesOrderStatus `gorm:"type:enum('Draft','Confirmed','Fulfilled','Cancelled');not null;default:'Draft'" json:"status"`
	Date         time.Time        `gorm:"type:date;not null" json:"date"`
	CustomerName string           `gorm:"size:255;not null" json:"customer_name"`
	QuotationId  *uint            `gorm:"index" json:"quotation_id"`
	WarehouseId  uint             `gorm:"not null;index" json:"warehouse_id"`
	TaxRate      decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"tax_rate"`
	Subtotal     decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount    decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total        decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Notes        string           `gorm:"size:500" json:"notes"`
	Lines        []SalesOrderLine `gorm:"foreignKey:SalesOrderId" json:"lines"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderLine struct {
	ID           uint            `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"type:char(36);index" json:"business_id"`
	SalesOrderId uint            `gorm:"not null;index" json:"sales_order_id"`
	ProductId    uint            `gorm:"not null;index" json:"product_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSalesOrderLine struct {
	ProductId uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
}

type NewSalesOrder struct {
	Date         time.Time           `json:"date" binding:"required"`
	CustomerName string              `json:"customer_name" binding:"required"`
	WarehouseId  uint                `json:"warehouse_id" binding:"required"`
	TaxRate      decimal.Decimal     `json:"tax_rate"`
	Notes        string              `json:"notes"`
	Lines        []NewSalesOrderLine `json:"lines" binding:"required,min=1"`
}

func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModuleSales); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if _, err := utils.FetchModel[Warehouse](ctx, input.WarehouseId); err != nil {
		return nil, err
	}
	if input.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate cannot be negative")
	}

	subtotal := decimal.Zero
	lines := make([]SalesOrderLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if line.Rate.IsNegative() {
			return nil, fmt.Errorf("line %d: rate cannot be negative", i+1)
		}
		if _, err := utils.FetchModel[Product](ctx, line.ProductId); err != nil {
			return nil, err
		}
		amount := utils.CalculateLineAmount(line.Quantity, line.Rate)
		subtotal = subtotal.Add(amount)
		lines = append(lines, SalesOrderLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
			Rate:       line.Rate,
			Amount:     amount,
		})
	}
	subtotal = utils.RoundMoney(subtotal)
	taxAmount := utils.CalculateTaxAmount(subtotal, input.TaxRate)

	db := config.GetDB()
	tx := db.Begin()
	number, err := NextDocumentNumber(ctx, tx, DocumentTypeSalesOrder)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	order := SalesOrder{
		BusinessId:   businessId,
		Number:       number,
		Status:       SalesOrderStatusDraft,
		Date:         utils.DateOnly(input.Date),
		CustomerName: input.CustomerName,
		WarehouseId:  input.WarehouseId,
		TaxRate:      input.TaxRate,
		Subtotal:     subtotal,
		TaxAmount:    taxAmount,
		Total:        subtotal.Add(taxAmount),
		Notes:        input.Notes,
		Lines:        lines,
	}
	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ConvertQuotationToSalesOrder drafts a sales order from an accepted
// quotation, copying its lines and pricing as quoted. The quotation records
// the order it became; converting it a second time is a Conflict.
type ConvertQuotationInput struct {
	QuotationId uint      `json:"quotation_id" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	WarehouseId uint      `json:"warehouse_id" binding:"required"`
}

func ConvertQuotationToSalesOrder(ctx context.Context, input *ConvertQuotationInput) (*SalesOrder, error) {
	quotation, err := GetQuotation(ctx, input.QuotationId)
	if err != nil {
		return nil, err
	}
	if quotation.Status != QuotationStatusAccepted {
		return nil, fmt.Errorf("quotation %s is %s, not Accepted: %w",
			quotation.Number, quotation.Status, utils.ErrorInvalidState)
	}
	if quotation.ConvertedOrderId != nil {
		return nil, fmt.Errorf("quotation %s was already converted to order %d: %w",
			quotation.Number, *quotation.ConvertedOrderId, utils.ErrorConflict)
	}

	lines := make([]NewSalesOrderLine, 0, len(quotation.Lines))
	for _, line := range quotation.Lines {
		lines = append(lines, NewSalesOrderLine{
			ProductId: line.ProductId,
			Quantity:  line.Quantity,
			Rate:      line.Rate,
		})
	}

	order, err := CreateSalesOrder(ctx, &NewSalesOrder{
		Date:         input.Date,
		CustomerName: quotation.CustomerName,
		WarehouseId:  input.WarehouseId,
		TaxRate:      quotation.TaxRate,
		Notes:        "From quotation " + quotation.Number,
		Lines:        lines,
	})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Claim the quotation for this order. Losing the race means another
	// conversion slipped in between the read and the claim.
	claim := db.WithContext(ctx).Model(&Quotation{}).
		Where("id = ? AND converted_order_id IS NULL", quotation.ID).
		Update("converted_order_id", order.ID)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		_, _ = CancelSalesOrder(ctx, order.ID)
		return nil, fmt.Errorf("quotation %s was already converted: %w", quotation.Number, utils.ErrorConflict)
	}
	if err := db.WithContext(ctx).Model(order).Update("QuotationId", quotation.ID).Error; err != nil {
		return nil, err
	}
	order.QuotationId = &quotation.ID
	return order, nil
}

func transitionSalesOrder(ctx context.Context, tx *gorm.DB, order *SalesOrder, target SalesOrderStatus) error {
	if !order.Status.CanTransitionTo(target) {
		return fmt.Errorf("sales order %s cannot go from %s to %s: %w",
			order.Number, order.Status, target, utils.ErrorInvalidState)
	}
	result := tx.WithContext(ctx).Model(&SalesOrder{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", target)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("sales order %s was modified concurrently: %w", order.Number, utils.ErrorConflict)
	}
	order.Status = target
	return nil
}

func ConfirmSalesOrder(ctx context.Context, id uint) (*SalesOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModuleSales); err != nil {
		return nil, err
	}
	order, err := utils.FetchModel[SalesOrder](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	if err := transitionSalesOrder(ctx, config.GetDB(), order, SalesOrderStatusConfirmed); err != nil {
		return nil, err
	}
	return order, nil
}

func CancelSalesOrder(ctx context.Context, id uint) (*SalesOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModuleSales); err != nil {
		return nil, err
	}
	order, err := utils.FetchModel[SalesOrder](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	if err := transitionSalesOrder(ctx, config.GetDB(), order, SalesOrderStatusCancelled); err != nil {
		return nil, err
	}
	return order, nil
}

func GetSalesOrder(ctx context.Context, id uint) (*SalesOrder, error) {
	return utils.FetchModel[SalesOrder](ctx, id, "Lines")
}

func GetSalesOrders(ctx context.Context, status *SalesOrderStatus) ([]SalesOrder, error) {
	return utils.FetchAllModels[SalesOrder](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
