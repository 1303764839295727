package models

import (
	"context"
	"time"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoodsReceipt records stock arriving against a confirmed purchase order.
// Each receipt owns the stock move that carried its quantities; receipts
// are immutable once posted.
type GoodsReceipt struct {
	ID              uint               `gorm:"primary_key" json:"id"`
	BusinessId      string             `gorm:"type:char(36);index:idx_grn_number,unique" json:"business_id"`
	Number          string             `gorm:"size:50;not null;index:idx_grn_number,unique" json:"number"`
	PurchaseOrderId uint               `gorm:"not null;index" json:"purchase_order_id"`
	Date            time.Time          `gorm:"type:date;not null" json:"date"`
	WarehouseId     uint               `gorm:"not null;index" json:"warehouse_id"`
	StockMoveId     *uint              `gorm:"index" json:"stock_move_id"`
	Posted          *bool              `gorm:"not null;default:false" json:"posted"`
	Notes           string             `gorm:"size:500" json:"notes"`
	Lines           []GoodsReceiptLine `gorm:"foreignKey:GoodsReceiptId" json:"lines"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type GoodsReceiptLine struct {
	ID                  uint            `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"type:char(36);index" json:"business_id"`
	GoodsReceiptId      uint            `gorm:"not null;index" json:"goods_receipt_id"`
	PurchaseOrderLineId uint            `gorm:"not null;index" json:"purchase_order_line_id"`
	ProductId           uint            `gorm:"not null;index" json:"product_id"`
	ReceivedQty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"received_qty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewGoodsReceiptLine struct {
	PurchaseOrderLineId uint            `json:"purchase_order_line_id" binding:"required"`
	ReceivedQty         decimal.Decimal `json:"received_qty" binding:"required"`
}

type NewGoodsReceipt struct {
	PurchaseOrderId uint                  `json:"purchase_order_id" binding:"required"`
	Date            time.Time             `json:"date" binding:"required"`
	WarehouseId     *uint                 `json:"warehouse_id"`
	Notes           string                `json:"notes"`
	Lines           []NewGoodsReceiptLine `json:"lines" binding:"required,min=1"`
}

func (g *GoodsReceipt) IsPosted() bool {
	return g.Posted != nil && *g.Posted
}

func GetGoodsReceipt(ctx context.Context, id uint) (*GoodsReceipt, error) {
	return utils.FetchModel[GoodsReceipt](ctx, id, "Lines")
}

func GetGoodsReceipts(ctx context.Context, purchaseOrderId *uint) ([]GoodsReceipt, error) {
	return utils.FetchAllModels[GoodsReceipt](ctx, func(db *gorm.DB) *gorm.DB {
		if purchaseOrderId != nil {
			db = db.Where("purchase_order_id = ?", *purchaseOrderId)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
