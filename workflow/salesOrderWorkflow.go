package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm/clause"
)

// FulfillSalesOrder issues a confirmed order's stock from its warehouse and
// marks it Fulfilled, in one transaction. A shortfall on any line rolls the
// whole fulfillment back unless the tenant allows negative stock.
func FulfillSalesOrder(ctx context.Context, id uint) (*models.SalesOrder, error) {
	ctx, span := startSpan(ctx, "FulfillSalesOrder")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModuleSales); err != nil {
		return nil, err
	}
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

	var order models.SalesOrder
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&order).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("sales order %d: %w", id, utils.ErrorRecordNotFound)
	}
	if order.Status != models.SalesOrderStatusConfirmed {
		tx.Rollback()
		return nil, fmt.Errorf("sales order %s is %s, not Confirmed: %w",
			order.Number, order.Status, utils.ErrorInvalidState)
	}

	moveNumber, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeStockMove)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	move := models.StockMove{
		BusinessId:        businessId,
		Number:            moveNumber,
		Type:              models.StockMoveTypeIssue,
		Date:              utils.DateOnly(time.Now()),
		SourceWarehouseId: &order.WarehouseId,
		Posted:            utils.NewFalse(),
		Reference:         "Sales order " + order.Number,
	}
	for _, line := range order.Lines {
		var product models.Product
		if err := tx.WithContext(ctx).Where("id = ?", line.ProductId).First(&product).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if !product.IsStocked() {
			continue
		}
		move.Lines = append(move.Lines, models.StockMoveLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
		})
	}

	if len(move.Lines) > 0 {
		if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := applyStockMoveTx(ctx, tx, &move, allowNegative); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	result := tx.WithContext(ctx).Model(&models.SalesOrder{}).
		Where("id = ? AND status = ?", order.ID, models.SalesOrderStatusConfirmed).
		Update("status", models.SalesOrderStatusFulfilled)
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("sales order %s was modified concurrently: %w", order.Number, utils.ErrorConflict)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	order.Status = models.SalesOrderStatusFulfilled
	return &order, nil
}
