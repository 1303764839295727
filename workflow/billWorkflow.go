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

// CreateBill drafts a standalone vendor bill with server-computed totals.
// Bills for purchased goods usually come from CreateBillFromPurchaseOrder;
// this path covers direct expenses.
func CreateBill(ctx context.Context, input *models.NewBill) (*models.Bill, error) {
	if err := models.ValidateModuleEnabled(ctx, models.ModulePurchase); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if input.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate cannot be negative")
	}

	subtotal := decimal.Zero
	lines := make([]models.BillLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if line.Rate.IsNegative() {
			return nil, fmt.Errorf("line %d: rate cannot be negative", i+1)
		}
		if line.ProductId != nil {
			if _, err := utils.FetchModel[models.Product](ctx, *line.ProductId); err != nil {
				return nil, err
			}
		}
		amount := utils.CalculateLineAmount(line.Quantity, line.Rate)
		subtotal = subtotal.Add(amount)
		lines = append(lines, models.BillLine{
			BusinessId:  businessId,
			ProductId:   line.ProductId,
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Amount:      amount,
		})
	}
	subtotal = utils.RoundMoney(subtotal)
	taxAmount := utils.CalculateTaxAmount(subtotal, input.TaxRate)

	db := config.GetDB()
	tx := db.Begin()
	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeBill)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	bill := models.Bill{
		BusinessId: businessId,
		Number:     number,
		Status:     models.BillStatusDraft,
		Date:       utils.DateOnly(input.Date),
		DueDate:    input.DueDate,
		VendorName: input.VendorName,
		TaxRate:    input.TaxRate,
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		Total:      subtotal.Add(taxAmount),
		PaidAmount: decimal.Zero,
		Notes:      input.Notes,
		Lines:      lines,
	}
	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// ConfirmBill posts a draft bill to the ledger: inventory and input tax are
// debited, payables credited. With bill-time stock recognition, any unposted
// receipt moves of the billed purchase order post in the same transaction,
// so stock and payables recognize together.
func ConfirmBill(ctx context.Context, id uint) (*models.Bill, error) {
	ctx, span := startSpan(ctx, "ConfirmBill")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModulePurchase); err != nil {
		return nil, err
	}
	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
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

	var bill models.Bill
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&bill).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("bill %d: %w", id, utils.ErrorRecordNotFound)
	}
	if bill.Status != models.BillStatusDraft {
		tx.Rollback()
		return nil, fmt.Errorf("bill %s is %s, not Draft: %w", bill.Number, bill.Status, utils.ErrorInvalidState)
	}

	inventoryAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountInventory)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	payableAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountPayable)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	journalLines := []models.NewJournalLine{
		{AccountId: inventoryAccount.ID, Debit: bill.Subtotal, Description: "Bill " + bill.Number},
	}
	if bill.TaxAmount.IsPositive() {
		taxAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountInputTax)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		journalLines = append(journalLines, models.NewJournalLine{
			AccountId: taxAccount.ID, Debit: bill.TaxAmount, Description: "Bill " + bill.Number + " tax",
		})
	}
	journalLines = append(journalLines, models.NewJournalLine{
		AccountId: payableAccount.ID, Credit: bill.Total, Description: bill.VendorName,
	})

	journal, err := models.PostJournalTx(ctx, tx, &models.JournalPostInput{
		Date:          bill.Date,
		Description:   "Bill " + bill.Number,
		ReferenceType: models.AccountReferenceTypeBill,
		ReferenceId:   &bill.ID,
		Lines:         journalLines,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if bill.PurchaseOrderId != nil && business.PurchaseStockRecognition == models.PurchaseStockRecognitionBill {
		if err := postUnpostedReceiptMoves(ctx, tx, business, *bill.PurchaseOrderId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	result := tx.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND status = ?", bill.ID, models.BillStatusDraft).
		Updates(map[string]interface{}{"status": models.BillStatusPosted, "journal_id": journal.ID})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("bill %s was modified concurrently: %w", bill.Number, utils.ErrorConflict)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	bill.Status = models.BillStatusPosted
	bill.JournalId = &journal.ID
	return &bill, nil
}

// postUnpostedReceiptMoves posts every draft stock move hanging off a
// purchase order's goods receipts.
func postUnpostedReceiptMoves(ctx context.Context, tx *gorm.DB, business *models.Business, purchaseOrderId uint) error {
	allowNegative := business.AllowNegativeStock != nil && *business.AllowNegativeStock
	var receipts []models.GoodsReceipt
	err := tx.WithContext(ctx).
		Where("purchase_order_id = ? AND posted = ?", purchaseOrderId, false).
		Find(&receipts).Error
	if err != nil {
		return err
	}
	for _, receipt := range receipts {
		if receipt.StockMoveId == nil {
			continue
		}
		var move models.StockMove
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Lines").
			Where("id = ?", *receipt.StockMoveId).
			First(&move).Error
		if err != nil {
			return err
		}
		if move.IsPosted() {
			continue
		}
		if err := applyStockMoveTx(ctx, tx, &move, allowNegative); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&models.GoodsReceipt{}).
			Where("id = ?", receipt.ID).
			Update("posted", true).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateBillPayment settles part or all of a posted bill, moving cash
// against payables. Overpaying the open balance is rejected.
func CreateBillPayment(ctx context.Context, input *models.NewBillPayment) (*models.BillPayment, error) {
	ctx, span := startSpan(ctx, "CreateBillPayment")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive: %w", utils.ErrorInvalidRange)
	}

	db := config.GetDB()
	tx := db.Begin()
	releasePostingLock, err := AcquireBusinessPostingLock(ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer releasePostingLock()

	var bill models.Bill
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, input.BillId).
		First(&bill).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("bill %d: %w", input.BillId, utils.ErrorRecordNotFound)
	}
	if bill.Status != models.BillStatusPosted && bill.Status != models.BillStatusPartialPaid {
		tx.Rollback()
		return nil, fmt.Errorf("bill %s is %s: %w", bill.Number, bill.Status, utils.ErrorInvalidState)
	}
	open := bill.OpenAmount()
	if input.Amount.GreaterThan(open) {
		tx.Rollback()
		return nil, fmt.Errorf("payment %s exceeds open balance %s: %w",
			input.Amount.StringFixed(2), open.StringFixed(2), utils.ErrorInvalidRange)
	}

	payableAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountPayable)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	cashAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountCash)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	journal, err := models.PostJournalTx(ctx, tx, &models.JournalPostInput{
		Date:          input.Date,
		Description:   "Payment for bill " + bill.Number,
		ReferenceType: models.AccountReferenceTypeBillPayment,
		ReferenceId:   &bill.ID,
		Lines: []models.NewJournalLine{
			{AccountId: payableAccount.ID, Debit: input.Amount, Description: bill.VendorName},
			{AccountId: cashAccount.ID, Credit: input.Amount, Description: "Payment for bill " + bill.Number},
		},
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	payment := models.BillPayment{
		BusinessId: businessId,
		BillId:     bill.ID,
		Date:       utils.DateOnly(input.Date),
		Amount:     utils.RoundMoney(input.Amount),
		JournalId:  journal.ID,
		Reference:  input.Reference,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	newPaid := bill.PaidAmount.Add(payment.Amount)
	newStatus := models.BillStatusPartialPaid
	if utils.AmountsEqual(newPaid, bill.Total) {
		newStatus = models.BillStatusPaid
	}
	result := tx.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND status = ?", bill.ID, bill.Status).
		Updates(map[string]interface{}{"paid_amount": newPaid, "status": newStatus})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("bill %s was modified concurrently: %w", bill.Number, utils.ErrorConflict)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}
