package models

import (
	"context"
	"time"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillPayment settles part or all of a posted bill. Each payment owns the
// journal that moved cash against payables.
type BillPayment struct {
	ID         uint            `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"type:char(36);index" json:"business_id"`
	BillId     uint            `gorm:"not null;index" json:"bill_id"`
	Date       time.Time       `gorm:"type:date;not null" json:"date"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	JournalId  uint            `gorm:"not null;index" json:"journal_id"`
	Reference  string          `gorm:"size:255" json:"reference"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// InvoicePayment settles part or all of a posted sales invoice.
type InvoicePayment struct {
	ID             uint            `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"type:char(36);index" json:"business_id"`
	SalesInvoiceId uint            `gorm:"not null;index" json:"sales_invoice_id"`
	Date           time.Time       `gorm:"type:date;not null" json:"date"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	JournalId      uint            `gorm:"not null;index" json:"journal_id"`
	Reference      string          `gorm:"size:255" json:"reference"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewBillPayment struct {
	BillId    uint            `json:"bill_id" binding:"required"`
	Date      time.Time       `json:"date" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
}

type NewInvoicePayment struct {
	SalesInvoiceId uint            `json:"sales_invoice_id" binding:"required"`
	Date           time.Time       `json:"date" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Reference      string          `json:"reference"`
}

func GetBillPayments(ctx context.Context, billId uint) ([]BillPayment, error) {
	return utils.FetchAllModels[BillPayment](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("bill_id = ?", billId).Order("id")
	})
}

func GetInvoicePayments(ctx context.Context, salesInvoiceId uint) ([]InvoicePayment, error) {
	return utils.FetchAllModels[InvoicePayment](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("sales_invoice_id = ?", salesInvoiceId).Order("id")
	})
}
