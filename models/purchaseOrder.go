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

// PurchaseOrder is a confirmed-intent-to-buy document. Receiving accumulates
// per line; the order reaches Received only when every line is fully
// received.
type PurchaseOrder struct {
	ID            uint                `gorm:"primary_key" json:"id"`
	BusinessId    string              `gorm:"type:char(36);index:idx_po_number,unique" json:"business_id"`
	Number        string              `gorm:"size:50;not null;index:idx_po_number,unique" json:"number"`
	Status        PurchaseOrderStatus `gorm:"type:enum('Draft','Confirmed','Received','Billed','Cancelled');not null;default:'Draft'" json:"status"`
	Date          time.Time           `gorm:"type:date;not null" json:"date"`
	VendorName    string              `gorm:"size:255;not null" json:"vendor_name"`
	RequisitionId *uint               `gorm:"index" json:"requisition_id"`
	WarehouseId   uint                `gorm:"not null;index" json:"warehouse_id"`
	TaxRate       decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"tax_rate"`
	Subtotal      decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total         decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Notes         string              `gorm:"size:500" json:"notes"`
	Lines         []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderId" json:"lines"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderLine struct {
	ID              uint            `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"type:char(36);index" json:"business_id"`
	PurchaseOrderId uint            `gorm:"not null;index" json:"purchase_order_id"`
	ProductId       uint            `gorm:"not null;index" json:"product_id"`
	OrderedQty      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"ordered_qty"`
	ReceivedQty     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"received_qty"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchaseOrderLine struct {
	ProductId uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
}

type NewPurchaseOrder struct {
	Date        time.Time              `json:"date" binding:"required"`
	VendorName  string                 `json:"vendor_name" binding:"required"`
	WarehouseId uint                   `json:"warehouse_id" binding:"required"`
	TaxRate     decimal.Decimal        `json:"tax_rate"`
	Notes       string                 `json:"notes"`
	Lines       []NewPurchaseOrderLine `json:"lines" binding:"required,min=1"`
}

// buildPurchaseOrderLines validates line inputs and computes line amounts
// and document totals server side. Client-sent totals are never trusted.
func buildPurchaseOrderLines(ctx context.Context, businessId string, taxRate decimal.Decimal, inputs []NewPurchaseOrderLine) ([]PurchaseOrderLine, decimal.Decimal, decimal.Decimal, error) {
	if taxRate.IsNegative() {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("tax rate cannot be negative")
	}
	subtotal := decimal.Zero
	lines := make([]PurchaseOrderLine, 0, len(inputs))
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
		lines = append(lines, PurchaseOrderLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			OrderedQty: line.Quantity,
			Rate:       line.Rate,
			Amount:     amount,
		})
	}
	subtotal = utils.RoundMoney(subtotal)
	taxAmount := utils.CalculateTaxAmount(subtotal, taxRate)
	return lines, subtotal, taxAmount, nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if _, err := utils.FetchModel[Warehouse](ctx, input.WarehouseId); err != nil {
		return nil, err
	}
	lines, subtotal, taxAmount, err := buildPurchaseOrderLines(ctx, businessId, input.TaxRate, input.Lines)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := NextDocumentNumber(ctx, tx, DocumentTypePurchaseOrder)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	order := PurchaseOrder{
		BusinessId:  businessId,
		Number:      number,
		Status:      PurchaseOrderStatusDraft,
		Date:        utils.DateOnly(input.Date),
		VendorName:  input.VendorName,
		WarehouseId: input.WarehouseId,
		TaxRate:     input.TaxRate,
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		Total:       subtotal.Add(taxAmount),
		Notes:       input.Notes,
		Lines:       lines,
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

// ConvertRequisitionToPurchaseOrder drafts a purchase order from an approved
// requisition, copying its lines at the given rates. The requisition keeps
// its Approved status but records the order it became; converting it a
// second time is a Conflict.
type ConvertRequisitionInput struct {
	RequisitionId uint                     `json:"requisition_id" binding:"required"`
	Date          time.Time                `json:"date" binding:"required"`
	VendorName    string                   `json:"vendor_name" binding:"required"`
	WarehouseId   uint                     `json:"warehouse_id" binding:"required"`
	TaxRate       decimal.Decimal          `json:"tax_rate"`
	Rates         map[uint]decimal.Decimal `json:"rates" binding:"required"`
}

func ConvertRequisitionToPurchaseOrder(ctx context.Context, input *ConvertRequisitionInput) (*PurchaseOrder, error) {
	requisition, err := GetRequisition(ctx, input.RequisitionId)
	if err != nil {
		return nil, err
	}
	if requisition.Status != RequisitionStatusApproved {
		return nil, fmt.Errorf("requisition %s is %s, not Approved: %w",
			requisition.Number, requisition.Status, utils.ErrorInvalidState)
	}
	if requisition.ConvertedOrderId != nil {
		return nil, fmt.Errorf("requisition %s was already converted to order %d: %w",
			requisition.Number, *requisition.ConvertedOrderId, utils.ErrorConflict)
	}

	lines := make([]NewPurchaseOrderLine, 0, len(requisition.Lines))
	for _, line := range requisition.Lines {
		rate, ok := input.Rates[line.ProductId]
		if !ok {
			return nil, fmt.Errorf("no rate given for product %d", line.ProductId)
		}
		lines = append(lines, NewPurchaseOrderLine{
			ProductId: line.ProductId,
			Quantity:  line.Quantity,
			Rate:      rate,
		})
	}

	order, err := CreatePurchaseOrder(ctx, &NewPurchaseOrder{
		Date:        input.Date,
		VendorName:  input.VendorName,
		WarehouseId: input.WarehouseId,
		TaxRate:     input.TaxRate,
		Notes:       "From requisition " + requisition.Number,
		Lines:       lines,
	})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Claim the requisition for this order. Losing the race means another
	// conversion slipped in between the read and the claim.
	claim := db.WithContext(ctx).Model(&Requisition{}).
		Where("id = ? AND converted_order_id IS NULL", requisition.ID).
		Update("converted_order_id", order.ID)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		_, _ = CancelPurchaseOrder(ctx, order.ID)
		return nil, fmt.Errorf("requisition %s was already converted: %w", requisition.Number, utils.ErrorConflict)
	}
	if err := db.WithContext(ctx).Model(order).Update("RequisitionId", requisition.ID).Error; err != nil {
		return nil, err
	}
	order.RequisitionId = &requisition.ID
	return order, nil
}

func transitionPurchaseOrder(ctx context.Context, tx *gorm.DB, order *PurchaseOrder, target PurchaseOrderStatus) error {
	if !order.Status.CanTransitionTo(target) {
		return fmt.Errorf("purchase order %s cannot go from %s to %s: %w",
			order.Number, order.Status, target, utils.ErrorInvalidState)
	}
	result := tx.WithContext(ctx).Model(&PurchaseOrder{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", target)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("purchase order %s was modified concurrently: %w", order.Number, utils.ErrorConflict)
	}
	order.Status = target
	return nil
}

// ConfirmPurchaseOrder moves a draft order to Confirmed, making it
// receivable and billable.
func ConfirmPurchaseOrder(ctx context.Context, id uint) (*PurchaseOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	order, err := utils.FetchModel[PurchaseOrder](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	if err := transitionPurchaseOrder(ctx, config.GetDB(), order, PurchaseOrderStatusConfirmed); err != nil {
		return nil, err
	}
	return order, nil
}

func CancelPurchaseOrder(ctx context.Context, id uint) (*PurchaseOrder, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	order, err := utils.FetchModel[PurchaseOrder](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	for _, line := range order.Lines {
		if line.ReceivedQty.IsPositive() {
			return nil, fmt.Errorf("purchase order %s has receipts: %w", order.Number, utils.ErrorInvalidState)
		}
	}
	if err := transitionPurchaseOrder(ctx, config.GetDB(), order, PurchaseOrderStatusCancelled); err != nil {
		return nil, err
	}
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, id uint) (*PurchaseOrder, error) {
	return utils.FetchModel[PurchaseOrder](ctx, id, "Lines")
}

func GetPurchaseOrders(ctx context.Context, status *PurchaseOrderStatus) ([]PurchaseOrder, error) {
	return utils.FetchAllModels[PurchaseOrder](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
