package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMove is a quantity movement document. It is created as a draft and
// takes effect on balances only when posted; a posted move is immutable and
// can only be undone by a counter-move.
type StockMove struct {
	ID                     uint            `gorm:"primary_key" json:"id"`
	BusinessId             string          `gorm:"type:char(36);index:idx_stock_move_number,unique" json:"business_id"`
	Number                 string          `gorm:"size:50;not null;index:idx_stock_move_number,unique" json:"number"`
	Type                   StockMoveType   `gorm:"type:enum('Receipt','Issue','Transfer','Adjustment','Quarantine');not null" json:"type"`
	Date                   time.Time       `gorm:"type:date;not null" json:"date"`
	SourceWarehouseId      *uint           `gorm:"index" json:"source_warehouse_id"`
	DestinationWarehouseId *uint           `gorm:"index" json:"destination_warehouse_id"`
	Posted                 *bool           `gorm:"not null;default:false" json:"posted"`
	PostedAt               *time.Time      `json:"posted_at"`
	Reference              string          `gorm:"size:255" json:"reference"`
	Lines                  []StockMoveLine `gorm:"foreignKey:StockMoveId" json:"lines"`
	CreatedAt              time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UnitCost and Value are stamped from the product's standard cost when the
// move is posted; drafts carry zeroes.
type StockMoveLine struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"type:char(36);index" json:"business_id"`
	StockMoveId uint            `gorm:"not null;index" json:"stock_move_id"`
	ProductId   uint            `gorm:"not null;index" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_cost"`
	Value       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"value"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockMoveLine struct {
	ProductId uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

type NewStockMove struct {
	Type                   StockMoveType      `json:"type" binding:"required"`
	Date                   time.Time          `json:"date" binding:"required"`
	SourceWarehouseId      *uint              `json:"source_warehouse_id"`
	DestinationWarehouseId *uint              `json:"destination_warehouse_id"`
	Reference              string             `json:"reference"`
	Lines                  []NewStockMoveLine `json:"lines" binding:"required,min=1"`
}

func (m *StockMove) IsPosted() bool {
	return m.Posted != nil && *m.Posted
}

// validateStockMoveShape enforces the warehouse fields each move type
// needs: receipts land somewhere, issues leave from somewhere, transfers
// and quarantine moves do both (and must differ), adjustments act on a
// single warehouse with signed quantities.
func validateStockMoveShape(input *NewStockMove) error {
	if !input.Type.IsValid() {
		return errors.New("invalid stock move type")
	}
	switch input.Type {
	case StockMoveTypeReceipt:
		if input.DestinationWarehouseId == nil {
			return errors.New("receipt requires a destination warehouse")
		}
		if input.SourceWarehouseId != nil {
			return errors.New("receipt must not have a source warehouse")
		}
	case StockMoveTypeIssue:
		if input.SourceWarehouseId == nil {
			return errors.New("issue requires a source warehouse")
		}
		if input.DestinationWarehouseId != nil {
			return errors.New("issue must not have a destination warehouse")
		}
	case StockMoveTypeTransfer, StockMoveTypeQuarantine:
		if input.SourceWarehouseId == nil || input.DestinationWarehouseId == nil {
			return fmt.Errorf("%s requires both source and destination warehouses", input.Type)
		}
		if *input.SourceWarehouseId == *input.DestinationWarehouseId {
			return errors.New("source and destination warehouses must differ")
		}
	case StockMoveTypeAdjustment:
		if input.DestinationWarehouseId == nil {
			return errors.New("adjustment requires a destination warehouse")
		}
		if input.SourceWarehouseId != nil {
			return errors.New("adjustment must not have a source warehouse")
		}
	}

	for i, line := range input.Lines {
		if line.Quantity.IsZero() {
			return fmt.Errorf("line %d: quantity cannot be zero", i+1)
		}
		// Only adjustments may carry signed quantities.
		if input.Type != StockMoveTypeAdjustment && line.Quantity.IsNegative() {
			return fmt.Errorf("line %d: quantity must be positive", i+1)
		}
	}
	return nil
}

// CreateStockMove records a draft move. Warehouses and products are
// validated up front; balances are untouched until posting.
func CreateStockMove(ctx context.Context, input *NewStockMove) (*StockMove, error) {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if err := validateStockMoveShape(input); err != nil {
		return nil, err
	}

	var source, destination *Warehouse
	if input.SourceWarehouseId != nil {
		warehouse, err := utils.FetchModel[Warehouse](ctx, *input.SourceWarehouseId)
		if err != nil {
			return nil, err
		}
		source = warehouse
	}
	if input.DestinationWarehouseId != nil {
		warehouse, err := utils.FetchModel[Warehouse](ctx, *input.DestinationWarehouseId)
		if err != nil {
			return nil, err
		}
		destination = warehouse
	}
	// A quarantine move crosses the quarantine boundary: exactly one side
	// is a quarantine warehouse.
	if input.Type == StockMoveTypeQuarantine {
		if source.IsQuarantineLocation() == destination.IsQuarantineLocation() {
			return nil, fmt.Errorf("quarantine move must pair a normal and a quarantine warehouse: %w", utils.ErrorInvalidState)
		}
	}
	for _, line := range input.Lines {
		product, err := utils.FetchModel[Product](ctx, line.ProductId)
		if err != nil {
			return nil, err
		}
		if !product.IsStocked() {
			return nil, fmt.Errorf("product %s is not stocked: %w", product.SKU, utils.ErrorInvalidState)
		}
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := NextDocumentNumber(ctx, tx, DocumentTypeStockMove)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	move := StockMove{
		BusinessId:             businessId,
		Number:                 number,
		Type:                   input.Type,
		Date:                   utils.DateOnly(input.Date),
		SourceWarehouseId:      input.SourceWarehouseId,
		DestinationWarehouseId: input.DestinationWarehouseId,
		Posted:                 utils.NewFalse(),
		Reference:              input.Reference,
	}
	for _, line := range input.Lines {
		move.Lines = append(move.Lines, StockMoveLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
		})
	}
	if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &move, nil
}

// DeleteStockMove removes a draft. Posted moves are immutable.
func DeleteStockMove(ctx context.Context, id uint) error {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return err
	}
	move, err := utils.FetchModel[StockMove](ctx, id)
	if err != nil {
		return err
	}
	if move.IsPosted() {
		return fmt.Errorf("posted stock move cannot be deleted: %w", utils.ErrorInvalidState)
	}
	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("stock_move_id = ?", move.ID).Delete(&StockMoveLine{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(move).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetStockMove(ctx context.Context, id uint) (*StockMove, error) {
	return utils.FetchModel[StockMove](ctx, id, "Lines")
}

func GetStockMoves(ctx context.Context, moveType *StockMoveType) ([]StockMove, error) {
	return utils.FetchAllModels[StockMove](ctx, func(db *gorm.DB) *gorm.DB {
		if moveType != nil {
			db = db.Where("type = ?", *moveType)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
