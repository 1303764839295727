package models

import (
	"context"
	"time"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesInvoice bills a customer. Confirming posts it to the ledger; payments
// reduce the open balance; credit notes reduce what can still be credited.
type SalesInvoice struct {
	ID             uint               `gorm:"primary_key" json:"id"`
	BusinessId     string             `gorm:"type:char(36);index:idx_invoice_number,unique" json:"business_id"`
	Number         string             `gorm:"size:50;not null;index:idx_invoice_number,unique" json:"number"`
	Status         SalesInvoiceStatus `gorm:"type:enum('Draft','Posted','Partial Paid','Paid','Cancelled');not null;default:'Draft'" json:"status"`
	Date           time.Time          `gorm:"type:date;not null" json:"date"`
	DueDate        *time.Time         `gorm:"type:date" json:"due_date"`
	CustomerName   string             `gorm:"size:255;not null" json:"customer_name"`
	SalesOrderId   *uint              `gorm:"index" json:"sales_order_id"`
	TaxRate        decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"tax_rate"`
	Subtotal       decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount      decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	PaidAmount     decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"paid_amount"`
	CreditedAmount decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"credited_amount"`
	JournalId      *uint              `gorm:"index" json:"journal_id"`
	Notes          string             `gorm:"size:500" json:"notes"`
	Lines          []SalesInvoiceLine `gorm:"foreignKey:SalesInvoiceId" json:"lines"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesInvoiceLine struct {
	ID             uint            `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"type:char(36);index" json:"business_id"`
	SalesInvoiceId uint            `gorm:"not null;index" json:"sales_invoice_id"`
	ProductId      *uint           `gorm:"index" json:"product_id"`
	Description    string          `gorm:"size:500" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSalesInvoiceLine struct {
	ProductId   *uint           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Rate        decimal.Decimal `json:"rate" binding:"required"`
}

type NewSalesInvoice struct {
	Date         time.Time             `json:"date" binding:"required"`
	DueDate      *time.Time            `json:"due_date"`
	CustomerName string                `json:"customer_name" binding:"required"`
	TaxRate      decimal.Decimal       `json:"tax_rate"`
	Notes        string                `json:"notes"`
	Lines        []NewSalesInvoiceLine `json:"lines" binding:"required,min=1"`
}

// OpenAmount is the unpaid remainder.
func (inv *SalesInvoice) OpenAmount() decimal.Decimal {
	return inv.Total.Sub(inv.PaidAmount)
}

// CreditableAmount is what credit notes can still reverse.
func (inv *SalesInvoice) CreditableAmount() decimal.Decimal {
	return inv.Total.Sub(inv.CreditedAmount)
}

func GetSalesInvoice(ctx context.Context, id uint) (*SalesInvoice, error) {
	return utils.FetchModel[SalesInvoice](ctx, id, "Lines")
}

func GetSalesInvoices(ctx context.Context, status *SalesInvoiceStatus) ([]SalesInvoice, error) {
	return utils.FetchAllModels[SalesInvoice](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
