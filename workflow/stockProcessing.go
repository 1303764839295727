package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockDelta is one signed balance change keyed by product and warehouse.
type stockDelta struct {
	ProductId   uint
	WarehouseId uint
	Quantity    decimal.Decimal
}

// ComputeStockDeltas expands a stock move into the signed balance changes it
// implies. Receipts add at the destination, issues subtract at the source,
// transfers and quarantine moves do both, adjustments apply their signed
// quantities at the destination. Deltas for the same product and warehouse
// collapse into one entry and come back in a deterministic order so
// concurrent posters lock rows in the same sequence.
func ComputeStockDeltas(move *models.StockMove) ([]stockDelta, error) {
	byKey := map[[2]uint]decimal.Decimal{}
	add := func(productId, warehouseId uint, qty decimal.Decimal) {
		key := [2]uint{productId, warehouseId}
		byKey[key] = byKey[key].Add(qty)
	}

	for _, line := range move.Lines {
		switch move.Type {
		case models.StockMoveTypeReceipt:
			add(line.ProductId, *move.DestinationWarehouseId, line.Quantity)
		case models.StockMoveTypeIssue:
			add(line.ProductId, *move.SourceWarehouseId, line.Quantity.Neg())
		case models.StockMoveTypeTransfer, models.StockMoveTypeQuarantine:
			add(line.ProductId, *move.SourceWarehouseId, line.Quantity.Neg())
			add(line.ProductId, *move.DestinationWarehouseId, line.Quantity)
		case models.StockMoveTypeAdjustment:
			add(line.ProductId, *move.DestinationWarehouseId, line.Quantity)
		default:
			return nil, fmt.Errorf("unknown stock move type %s", move.Type)
		}
	}

	deltas := make([]stockDelta, 0, len(byKey))
	for key, qty := range byKey {
		if qty.IsZero() {
			continue
		}
		deltas = append(deltas, stockDelta{ProductId: key[0], WarehouseId: key[1], Quantity: qty})
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].ProductId != deltas[j].ProductId {
			return deltas[i].ProductId < deltas[j].ProductId
		}
		return deltas[i].WarehouseId < deltas[j].WarehouseId
	})
	return deltas, nil
}

// negativeStockAllowed restricts the tenant's negative-stock flag to the
// move types that may deliberately drive a balance below zero. Transfers and
// quarantine moves only relocate stock, so their source must always cover
// the quantity.
func negativeStockAllowed(moveType models.StockMoveType, tenantAllows bool) bool {
	if !tenantAllows {
		return false
	}
	return moveType == models.StockMoveTypeAdjustment || moveType == models.StockMoveTypeIssue
}

// applyStockMoveTx applies a move's deltas to locked balance rows and marks
// the move posted, all inside the caller's transaction. Any shortfall rolls
// the whole move back.
func applyStockMoveTx(ctx context.Context, tx *gorm.DB, move *models.StockMove, allowNegative bool) error {
	deltas, err := ComputeStockDeltas(move)
	if err != nil {
		return err
	}
	negativeOK := negativeStockAllowed(move.Type, allowNegative)
	for _, delta := range deltas {
		summary, err := models.FetchStockSummaryForUpdate(ctx, tx, delta.ProductId, delta.WarehouseId)
		if err != nil {
			return err
		}
		if err := models.ApplyStockDelta(ctx, tx, summary, delta.Quantity, negativeOK); err != nil {
			return err
		}
	}

	// Stamp each line with the product's standard cost at posting time so
	// the move carries its valuation even if costs change later.
	costs := map[uint]decimal.Decimal{}
	for i := range move.Lines {
		line := &move.Lines[i]
		cost, ok := costs[line.ProductId]
		if !ok {
			var product models.Product
			if err := tx.WithContext(ctx).First(&product, line.ProductId).Error; err != nil {
				return err
			}
			cost = product.StandardCost
			costs[line.ProductId] = cost
		}
		line.UnitCost = cost
		line.Value = utils.CalculateLineAmount(line.Quantity, cost)
		err := tx.WithContext(ctx).Model(&models.StockMoveLine{}).
			Where("id = ?", line.ID).
			Updates(map[string]interface{}{"unit_cost": line.UnitCost, "value": line.Value}).Error
		if err != nil {
			return err
		}
	}

	now := time.Now()
	result := tx.WithContext(ctx).Model(&models.StockMove{}).
		Where("id = ? AND posted = ?", move.ID, false).
		Updates(map[string]interface{}{"posted": true, "posted_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("stock move %s is already posted: %w", move.Number, utils.ErrorConflict)
	}
	move.Posted = utils.NewTrue()
	move.PostedAt = &now
	return nil
}

// PostStockMove applies a draft move to stock balances atomically. Posting
// the same move twice is a Conflict; a balance that would go negative rolls
// back every line unless the tenant allows negative stock.
func PostStockMove(ctx context.Context, id uint) (*models.StockMove, error) {
	ctx, span := startSpan(ctx, "PostStockMove")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModuleInventory); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	business, err := models.GetBusiness(ctx)
	if err != nil {
		return nil, err
	}
	allowNegative := business.AllowNegativeStock != nil && *business.AllowNegativeStock

	db := config.GetDB()
	tx := db.Begin()
	releasePostingLock, err := AcquireBusinessPostingLock(ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer releasePostingLock()

	var move models.StockMove
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&move).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("stock move %d: %w", id, utils.ErrorRecordNotFound)
	}
	if move.IsPosted() {
		tx.Rollback()
		return nil, fmt.Errorf("stock move %s is already posted: %w", move.Number, utils.ErrorConflict)
	}

	if err := applyStockMoveTx(ctx, tx, &move, allowNegative); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &move, nil
}
