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

// Bill is a vendor invoice. Confirming posts it to the ledger; payments
// reduce the open balance until it is fully paid.
type Bill struct {
	ID              uint            `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"type:char(36);index:idx_bill_number,unique" json:"business_id"`
	Number          string          `gorm:"size:50;not null;index:idx_bill_number,unique" json:"number"`
	Status          BillStatus      `gorm:"type:enum('Draft','Posted','Partial Paid','Paid','Cancelled');not null;default:'Draft'" json:"status"`
	Date            time.Time       `gorm:"type:date;not null" json:"date"`
	DueDate         *time.Time      `gorm:"type:date" json:"due_date"`
	VendorName      string          `gorm:"size:255;not null" json:"vendor_name"`
	PurchaseOrderId *uint           `gorm:"index" json:"purchase_order_id"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_rate"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"paid_amount"`
	JournalId       *uint           `gorm:"index" json:"journal_id"`
	Notes           string          `gorm:"size:500" json:"notes"`
	Lines           []BillLine      `gorm:"foreignKey:BillId" json:"lines"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillLine struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"type:char(36);index" json:"business_id"`
	BillId      uint            `gorm:"not null;index" json:"bill_id"`
	ProductId   *uint           `gorm:"index" json:"product_id"`
	Description string          `gorm:"size:500" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewBillLine struct {
	ProductId   *uint           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Rate        decimal.Decimal `json:"rate" binding:"required"`
}

type NewBill struct {
	Date       time.Time       `json:"date" binding:"required"`
	DueDate    *time.Time      `json:"due_date"`
	VendorName string          `json:"vendor_name" binding:"required"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Notes      string          `json:"notes"`
	Lines      []NewBillLine   `json:"lines" binding:"required,min=1"`
}

// OpenAmount is the unpaid remainder.
func (b *Bill) OpenAmount() decimal.Decimal {
	return b.Total.Sub(b.PaidAmount)
}

func GetBill(ctx context.Context, id uint) (*Bill, error) {
	return utils.FetchModel[Bill](ctx, id, "Lines")
}

// CancelBill voids a bill that was never posted. Anything past Draft has a
// journal or payments behind it and cannot be cancelled.
func CancelBill(ctx context.Context, id uint) (*Bill, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	bill, err := GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bill.Status.CanTransitionTo(BillStatusCancelled) {
		return nil, fmt.Errorf("bill %s is %s and cannot be cancelled: %w",
			bill.Number, bill.Status, utils.ErrorInvalidState)
	}

	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND status = ?", bill.ID, bill.Status).
		Update("status", BillStatusCancelled)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("bill %s was modified concurrently: %w", bill.Number, utils.ErrorConflict)
	}
	bill.Status = BillStatusCancelled
	return bill, nil
}

func GetBills(ctx context.Context, status *BillStatus) ([]Bill, error) {
	return utils.FetchAllModels[Bill](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
