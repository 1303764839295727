package workflow

import (
	"context"
	"fmt"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// CreateSalesInvoice drafts a standalone customer invoice with
// server-computed totals.
func CreateSalesInvoice(ctx context.Context, input *models.NewSalesInvoice) (*models.SalesInvoice, error) {
	if err := models.ValidateModuleEnabled(ctx, models.ModuleSales); err != nil {
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
	lines := make([]models.SalesInvoiceLine, 0, len(input.Lines))
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
		lines = append(lines, models.SalesInvoiceLine{
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
	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeSalesInvoice)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice := models.SalesInvoice{
		BusinessId:   businessId,
		Number:       number,
		Status:       models.SalesInvoiceStatusDraft,
		Date:         utils.DateOnly(input.Date),
		DueDate:      input.DueDate,
		CustomerName: input.CustomerName,
		TaxRate:      input.TaxRate,
		Subtotal:     subtotal,
		TaxAmount:    taxAmount,
		Total:        subtotal.Add(taxAmount),
		PaidAmount:   decimal.Zero,
		Notes:        input.Notes,
		Lines:        lines,
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateInvoiceFromSalesOrder drafts an invoice covering a confirmed or
// fulfilled sales order's full quantities at the ordered rates. One invoice
// per order.
func CreateInvoiceFromSalesOrder(ctx context.Context, salesOrderId uint) (*models.SalesInvoice, error) {
	ctx, span := startSpan(ctx, "CreateInvoiceFromSalesOrder")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModuleSales); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	order, err := models.GetSalesOrder(ctx, salesOrderId)
	if err != nil {
		return nil, err
	}
	if order.Status != models.SalesOrderStatusConfirmed && order.Status != models.SalesOrderStatusFulfilled {
		return nil, fmt.Errorf("sales order %s is %s: %w", order.Number, order.Status, utils.ErrorInvalidState)
	}
	existing, err := utils.ResourceCountWhere[models.SalesInvoice](ctx, "sales_order_id = ?", order.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("sales order %s is already invoiced: %w", order.Number, utils.ErrorConflict)
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeSalesInvoice)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice := models.SalesInvoice{
		BusinessId:   businessId,
		Number:       number,
		Status:       models.SalesInvoiceStatusDraft,
		Date:         order.Date,
		CustomerName: order.CustomerName,
		SalesOrderId: &order.ID,
		TaxRate:      order.TaxRate,
		Subtotal:     order.Subtotal,
		TaxAmount:    order.TaxAmount,
		Total:        order.Total,
		PaidAmount:   decimal.Zero,
	}
	for _, line := range order.Lines {
		productId := line.ProductId
		invoice.Lines = append(invoice.Lines, models.SalesInvoiceLine{
			BusinessId: businessId,
			ProductId:  &productId,
			Quantity:   line.Quantity,
			Rate:       line.Rate,
			Amount:     line.Amount,
		})
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ConfirmInvoice posts a draft invoice: receivables are debited for the
// total, revenue and output tax credited. Stocked lines also post cost of
// goods at standard cost, debiting COGS against inventory.
func ConfirmInvoice(ctx context.Context, id uint) (*models.SalesInvoice, error) {
	ctx, span := startSpan(ctx, "ConfirmInvoice")
	defer span.End()

	if err := models.ValidateModuleEnabled(ctx, models.ModuleSales); err != nil {
		return nil, err
	}
	if err := models.ValidateModuleEnabled(ctx, models.ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	db := config.GetDB()
	tx := db.Begin()
	releasePostingLock, err := AcquireBusinessPostingLock(ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer releasePostingLock()

	var invoice models.SalesInvoice
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&invoice).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %d: %w", id, utils.ErrorRecordNotFound)
	}
	if invoice.Status != models.SalesInvoiceStatusDraft {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %s is %s, not Draft: %w",
			invoice.Number, invoice.Status, utils.ErrorInvalidState)
	}

	receivableAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountReceivable)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	salesAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountSales)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	journalLines := []models.NewJournalLine{
		{AccountId: receivableAccount.ID, Debit: invoice.Total, Description: invoice.CustomerName},
		{AccountId: salesAccount.ID, Credit: invoice.Subtotal, Description: "Invoice " + invoice.Number},
	}
	if invoice.TaxAmount.IsPositive() {
		taxAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountOutputTax)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		journalLines = append(journalLines, models.NewJournalLine{
			AccountId: taxAccount.ID, Credit: invoice.TaxAmount, Description: "Invoice " + invoice.Number + " tax",
		})
	}

	// Standard-cost COGS for stocked lines.
	cogsTotal := decimal.Zero
	for _, line := range invoice.Lines {
		if line.ProductId == nil {
			continue
		}
		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", *line.ProductId).First(&product).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if product.IsStocked() && product.StandardCost.IsPositive() {
			cogsTotal = cogsTotal.Add(utils.CalculateLineAmount(line.Quantity, product.StandardCost))
		}
	}
	if cogsTotal.IsPositive() {
		cogsAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountCOGS)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		inventoryAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountInventory)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		cogsTotal = utils.RoundMoney(cogsTotal)
		journalLines = append(journalLines,
			models.NewJournalLine{AccountId: cogsAccount.ID, Debit: cogsTotal, Description: "COGS invoice " + invoice.Number},
			models.NewJournalLine{AccountId: inventoryAccount.ID, Credit: cogsTotal, Description: "COGS invoice " + invoice.Number},
		)
	}

	journal, err := models.PostJournalTx(ctx, tx, &models.JournalPostInput{
		Date:          invoice.Date,
		Description:   "Invoice " + invoice.Number,
		ReferenceType: models.AccountReferenceTypeInvoice,
		ReferenceId:   &invoice.ID,
		Lines:         journalLines,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result := tx.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("id = ? AND status = ?", invoice.ID, models.SalesInvoiceStatusDraft).
		Updates(map[string]interface{}{"status": models.SalesInvoiceStatusPosted, "journal_id": journal.ID})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %s was modified concurrently: %w", invoice.Number, utils.ErrorConflict)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.Status = models.SalesInvoiceStatusPosted
	invoice.JournalId = &journal.ID
	return &invoice, nil
}

// CreateInvoicePayment settles part or all of a posted invoice, moving cash
// against receivables. Overpaying the open balance is rejected.
func CreateInvoicePayment(ctx context.Context, input *models.NewInvoicePayment) (*models.InvoicePayment, error) {
	ctx, span := startSpan(ctx, "CreateInvoicePayment")
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

	var invoice models.SalesInvoice
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, input.SalesInvoiceId).
		First(&invoice).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %d: %w", input.SalesInvoiceId, utils.ErrorRecordNotFound)
	}
	if invoice.Status != models.SalesInvoiceStatusPosted && invoice.Status != models.SalesInvoiceStatusPartialPaid {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %s is %s: %w", invoice.Number, invoice.Status, utils.ErrorInvalidState)
	}
	open := invoice.OpenAmount()
	if input.Amount.GreaterThan(open) {
		tx.Rollback()
		return nil, fmt.Errorf("payment %s exceeds open balance %s: %w",
			input.Amount.StringFixed(2), open.StringFixed(2), utils.ErrorInvalidRange)
	}

	cashAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountCash)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	receivableAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountReceivable)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	journal, err := models.PostJournalTx(ctx, tx, &models.JournalPostInput{
		Date:          input.Date,
		Description:   "Payment for invoice " + invoice.Number,
		ReferenceType: models.AccountReferenceTypeInvoicePayment,
		ReferenceId:   &invoice.ID,
		Lines: []models.NewJournalLine{
			{AccountId: cashAccount.ID, Debit: input.Amount, Description: "Payment for invoice " + invoice.Number},
			{AccountId: receivableAccount.ID, Credit: input.Amount, Description: invoice.CustomerName},
		},
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	payment := models.InvoicePayment{
		BusinessId:     businessId,
		SalesInvoiceId: invoice.ID,
		Date:           utils.DateOnly(input.Date),
		Amount:         utils.RoundMoney(input.Amount),
		JournalId:      journal.ID,
		Reference:      input.Reference,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	newPaid := invoice.PaidAmount.Add(payment.Amount)
	newStatus := models.SalesInvoiceStatusPartialPaid
	if utils.AmountsEqual(newPaid, invoice.Total) {
		newStatus = models.SalesInvoiceStatusPaid
	}
	result := tx.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("id = ? AND status = ?", invoice.ID, invoice.Status).
		Updates(map[string]interface{}{"paid_amount": newPaid, "status": newStatus})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %s was modified concurrently: %w", invoice.Number, utils.ErrorConflict)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}
