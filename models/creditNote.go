package models

import (
	"context"
	"time"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditNote reverses part or all of a posted sales invoice. It is created
// and posted in one step, so a credit note row always has its reversing
// journal.
type CreditNote struct {
	ID             uint             `gorm:"primary_key" json:"id"`
	BusinessId     string           `gorm:"type:char(36);index:idx_credit_note_number,unique" json:"business_id"`
	Number         string           `gorm:"size:50;not null;index:idx_credit_note_number,unique" json:"number"`
	Status         CreditNoteStatus `gorm:"type:enum('Draft','Posted');not null;default:'Posted'" json:"status"`
	Date           time.Time        `gorm:"type:date;not null" json:"date"`
	SalesInvoiceId uint             `gorm:"not null;index" json:"sales_invoice_id"`
	CustomerName   string           `gorm:"size:255;not null" json:"customer_name"`
	Subtotal       decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"tax_amount"`
	Total          decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"total"`
	JournalId      *uint            `gorm:"index" json:"journal_id"`
	StockMoveId    *uint            `gorm:"index" json:"stock_move_id"`
	Reason         string           `gorm:"size:500" json:"reason"`
	Lines          []CreditNoteLine `gorm:"foreignKey:CreditNoteId" json:"lines"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type CreditNoteLine struct {
	ID           uint            `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"type:char(36);index" json:"business_id"`
	CreditNoteId uint            `gorm:"not null;index" json:"credit_note_id"`
	ProductId    *uint           `gorm:"index" json:"product_id"`
	Description  string          `gorm:"size:500" json:"description"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCreditNoteLine struct {
	ProductId   *uint           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Rate        decimal.Decimal `json:"rate" binding:"required"`
}

// Lines may be omitted; the note then covers the invoice's remaining
// creditable value.
type NewCreditNote struct {
	SalesInvoiceId     uint                `json:"sales_invoice_id" binding:"required"`
	Date               time.Time           `json:"date" binding:"required"`
	Reason             string              `json:"reason"`
	RestockWarehouseId *uint               `json:"restock_warehouse_id"`
	Lines              []NewCreditNoteLine `json:"lines"`
}

func GetCreditNote(ctx context.Context, id uint) (*CreditNote, error) {
	return utils.FetchModel[CreditNote](ctx, id, "Lines")
}

func GetCreditNotes(ctx context.Context, salesInvoiceId *uint) ([]CreditNote, error) {
	return utils.FetchAllModels[CreditNote](ctx, func(db *gorm.DB) *gorm.DB {
		if salesInvoiceId != nil {
			db = db.Where("sales_invoice_id = ?", *salesInvoiceId)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
