package workflow

import (
	"context"
	"fmt"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateGoodsReceipt records stock arriving against a confirmed purchase
// order. Receipts accumulate per order line and can never exceed the ordered
// quantity; when every line is fully received the order advances to
// Received. When the tenant recognizes stock at receipt time and has
// auto-posting on, the receipt's stock move posts in the same transaction.
func CreateGoodsReceipt(ctx context.Context, input *models.NewGoodsReceipt) (*models.GoodsReceipt, error) {
	ctx, span := startSpan(ctx, "CreateGoodsReceipt")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModulePurchase); err != nil {
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

	db := config.GetDB()
	tx := db.Begin()
	releasePostingLock, err := AcquireBusinessPostingLock(ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer releasePostingLock()

	var order models.PurchaseOrder
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, input.PurchaseOrderId).
		First(&order).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("purchase order %d: %w", input.PurchaseOrderId, utils.ErrorRecordNotFound)
	}
	if order.Status != models.PurchaseOrderStatusConfirmed {
		tx.Rollback()
		return nil, fmt.Errorf("purchase order %s is %s, not Confirmed: %w",
			order.Number, order.Status, utils.ErrorInvalidState)
	}

	warehouseId := order.WarehouseId
	if input.WarehouseId != nil {
		warehouseId = *input.WarehouseId
	}
	if _, err := utils.FetchModel[models.Warehouse](ctx, warehouseId); err != nil {
		tx.Rollback()
		return nil, err
	}

	orderLines := map[uint]*models.PurchaseOrderLine{}
	for i := range order.Lines {
		orderLines[order.Lines[i].ID] = &order.Lines[i]
	}

	receiptLines := make([]models.GoodsReceiptLine, 0, len(input.Lines))
	moveLines := make([]models.NewStockMoveLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		orderLine, ok := orderLines[line.PurchaseOrderLineId]
		if !ok {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: order line %d does not belong to purchase order %s: %w",
				i+1, line.PurchaseOrderLineId, order.Number, utils.ErrorRecordNotFound)
		}
		if !line.ReceivedQty.IsPositive() {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: received quantity must be positive", i+1)
		}
		remaining := orderLine.OrderedQty.Sub(orderLine.ReceivedQty)
		if line.ReceivedQty.GreaterThan(remaining) {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: receiving %s exceeds remaining %s: %w",
				i+1, line.ReceivedQty.String(), remaining.String(), utils.ErrorInvalidRange)
		}
		receiptLines = append(receiptLines, models.GoodsReceiptLine{
			BusinessId:          businessId,
			PurchaseOrderLineId: orderLine.ID,
			ProductId:           orderLine.ProductId,
			ReceivedQty:         line.ReceivedQty,
		})
		moveLines = append(moveLines, models.NewStockMoveLine{
			ProductId: orderLine.ProductId,
			Quantity:  line.ReceivedQty,
		})
		orderLine.ReceivedQty = orderLine.ReceivedQty.Add(line.ReceivedQty)
	}

	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeGoodsReceipt)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	moveNumber, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeStockMove)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	move := models.StockMove{
		BusinessId:             businessId,
		Number:                 moveNumber,
		Type:                   models.StockMoveTypeReceipt,
		Date:                   utils.DateOnly(input.Date),
		DestinationWarehouseId: &warehouseId,
		Posted:                 utils.NewFalse(),
		Reference:              "Goods receipt " + number,
	}
	for _, line := range moveLines {
		move.Lines = append(move.Lines, models.StockMoveLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
		})
	}
	if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	receipt := models.GoodsReceipt{
		BusinessId:      businessId,
		Number:          number,
		PurchaseOrderId: order.ID,
		Date:            utils.DateOnly(input.Date),
		WarehouseId:     warehouseId,
		StockMoveId:     &move.ID,
		Posted:          utils.NewFalse(),
		Notes:           input.Notes,
		Lines:           receiptLines,
	}
	if err := tx.WithContext(ctx).Create(&receipt).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	recognizeAtReceipt := business.PurchaseStockRecognition == models.PurchaseStockRecognitionReceipt
	autoPost := business.AutoPostGoodsReceipt != nil && *business.AutoPostGoodsReceipt
	if recognizeAtReceipt && autoPost {
		allowNegative := business.AllowNegativeStock != nil && *business.AllowNegativeStock
		if err := applyStockMoveTx(ctx, tx, &move, allowNegative); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.WithContext(ctx).Model(&receipt).Update("posted", true).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		receipt.Posted = utils.NewTrue()
	}

	fullyReceived := true
	for _, line := range order.Lines {
		if err := tx.WithContext(ctx).Model(&models.PurchaseOrderLine{}).
			Where("id = ?", line.ID).
			Update("received_qty", line.ReceivedQty).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if line.ReceivedQty.LessThan(line.OrderedQty) {
			fullyReceived = false
		}
	}
	if fullyReceived {
		if err := tx.WithContext(ctx).Model(&models.PurchaseOrder{}).
			Where("id = ? AND status = ?", order.ID, models.PurchaseOrderStatusConfirmed).
			Update("status", models.PurchaseOrderStatusReceived).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		order.Status = models.PurchaseOrderStatusReceived
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// CreateBillFromPurchaseOrder drafts a vendor bill covering a purchase
// order's full quantities at the ordered rates. With receipt-time stock
// recognition the order must be fully received first; with bill-time
// recognition a confirmed order can be billed directly. One bill per order.
func CreateBillFromPurchaseOrder(ctx context.Context, purchaseOrderId uint) (*models.Bill, error) {
	ctx, span := startSpan(ctx, "CreateBillFromPurchaseOrder")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModulePurchase); err != nil {
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

	order, err := models.GetPurchaseOrder(ctx, purchaseOrderId)
	if err != nil {
		return nil, err
	}
	switch business.PurchaseStockRecognition {
	case models.PurchaseStockRecognitionReceipt:
		if order.Status != models.PurchaseOrderStatusReceived {
			return nil, fmt.Errorf("purchase order %s is %s, not Received: %w",
				order.Number, order.Status, utils.ErrorInvalidState)
		}
	default:
		if order.Status != models.PurchaseOrderStatusConfirmed && order.Status != models.PurchaseOrderStatusReceived {
			return nil, fmt.Errorf("purchase order %s is %s: %w",
				order.Number, order.Status, utils.ErrorInvalidState)
		}
	}
	existing, err := utils.ResourceCountWhere[models.Bill](ctx, "purchase_order_id = ?", order.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("purchase order %s is already billed: %w", order.Number, utils.ErrorConflict)
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeBill)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	bill := models.Bill{
		BusinessId:      businessId,
		Number:          number,
		Status:          models.BillStatusDraft,
		Date:            order.Date,
		VendorName:      order.VendorName,
		PurchaseOrderId: &order.ID,
		TaxRate:         order.TaxRate,
		Subtotal:        order.Subtotal,
		TaxAmount:       order.TaxAmount,
		Total:           order.Total,
		PaidAmount:      decimal.Zero,
	}
	for _, line := range order.Lines {
		productId := line.ProductId
		bill.Lines = append(bill.Lines, models.BillLine{
			BusinessId: businessId,
			ProductId:  &productId,
			Quantity:   line.OrderedQty,
			Rate:       line.Rate,
			Amount:     line.Amount,
		})
	}
	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := transitionPurchaseOrderTo(ctx, tx, order, models.PurchaseOrderStatusBilled); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func transitionPurchaseOrderTo(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder, target models.PurchaseOrderStatus) error {
	if !order.Status.CanTransitionTo(target) {
		return fmt.Errorf("purchase order %s cannot go from %s to %s: %w",
			order.Number, order.Status, target, utils.ErrorInvalidState)
	}
	result := tx.WithContext(ctx).Model(&models.PurchaseOrder{}).
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
