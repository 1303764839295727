package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"

	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockSummary is the running on-hand balance per product and warehouse. It
// is only ever written under a row lock while posting a stock move, so the
// quantity always equals the sum of posted movements.
type StockSummary struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"type:char(36);index:idx_stock_summary,unique" json:"business_id"`
	ProductId   uint            `gorm:"not null;index:idx_stock_summary,unique" json:"product_id"`
	WarehouseId uint            `gorm:"not null;index:idx_stock_summary,unique" json:"warehouse_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FetchStockSummaryForUpdate loads the balance row for a product and
// warehouse with a FOR UPDATE lock, creating a zero row when none exists.
// Concurrent posters of the same product and warehouse serialize here.
func FetchStockSummaryForUpdate(ctx context.Context, tx *gorm.DB, productId, warehouseId uint) (*StockSummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	var summary StockSummary
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(StockSummary{BusinessId: businessId, ProductId: productId, WarehouseId: warehouseId}).
		FirstOrCreate(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ApplyStockDelta adds a signed quantity to a locked balance row. A result
// below zero is InsufficientStock unless the tenant allows negative stock.
func ApplyStockDelta(ctx context.Context, tx *gorm.DB, summary *StockSummary, delta decimal.Decimal, allowNegative bool) error {
	newQuantity := summary.Quantity.Add(delta)
	if newQuantity.IsNegative() && !allowNegative {
		return fmt.Errorf("product %d in warehouse %d would go to %s: %w",
			summary.ProductId, summary.WarehouseId, newQuantity.String(), utils.ErrorInsufficientStock)
	}
	err := tx.WithContext(ctx).Model(&StockSummary{}).
		Where("id = ?", summary.ID).
		Update("quantity", newQuantity).Error
	if err != nil {
		return err
	}
	summary.Quantity = newQuantity
	return nil
}

type StockBalance struct {
	ProductId     uint            `json:"product_id"`
	SKU           string          `json:"sku"`
	ProductName   string          `json:"product_name"`
	WarehouseId   uint            `json:"warehouse_id"`
	WarehouseCode string          `json:"warehouse_code"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// GetStockBalances reports on-hand quantities, optionally filtered by
// product or warehouse.
func GetStockBalances(ctx context.Context, productId, warehouseId *uint) ([]StockBalance, error) {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	db := config.GetDB()
	query := db.WithContext(ctx).
		Table("stock_summaries").
		Select(`stock_summaries.product_id, products.sku, products.name AS product_name,
			stock_summaries.warehouse_id, warehouses.code AS warehouse_code,
			stock_summaries.quantity`).
		Joins("JOIN products ON products.id = stock_summaries.product_id").
		Joins("JOIN warehouses ON warehouses.id = stock_summaries.warehouse_id").
		Where("stock_summaries.business_id = ?", businessId)
	if productId != nil {
		query = query.Where("stock_summaries.product_id = ?", *productId)
	}
	if warehouseId != nil {
		query = query.Where("stock_summaries.warehouse_id = ?", *warehouseId)
	}

	var balances []StockBalance
	if err := query.Order("products.sku, warehouses.code").Scan(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}
