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

// defaultCreditNoteLines builds the lines for a note submitted without any:
// a fresh invoice is credited line for line, a partially credited one gets a
// single line for the net value still outstanding.
func defaultCreditNoteLines(ctx context.Context, tx *gorm.DB, invoice *models.SalesInvoice) ([]models.NewCreditNoteLine, error) {
	if invoice.CreditedAmount.IsZero() {
		var invoiceLines []models.SalesInvoiceLine
		err := tx.WithContext(ctx).
			Where("sales_invoice_id = ?", invoice.ID).
			Order("id").
			Find(&invoiceLines).Error
		if err != nil {
			return nil, err
		}
		lines := make([]models.NewCreditNoteLine, 0, len(invoiceLines))
		for _, line := range invoiceLines {
			lines = append(lines, models.NewCreditNoteLine{
				ProductId:   line.ProductId,
				Description: line.Description,
				Quantity:    line.Quantity,
				Rate:        line.Rate,
			})
		}
		return lines, nil
	}

	remaining := invoice.CreditableAmount()
	if !remaining.IsPositive() {
		return nil, fmt.Errorf("invoice %s is fully credited: %w", invoice.Number, utils.ErrorInvalidState)
	}
	// Back the tax out so the note's gross total lands on the remainder.
	net := remaining
	if invoice.TaxRate.IsPositive() {
		factor := decimal.NewFromInt(100).Add(invoice.TaxRate).Div(decimal.NewFromInt(100))
		net = utils.RoundMoney(remaining.Div(factor))
	}
	return []models.NewCreditNoteLine{{
		Description: "Remaining balance of invoice " + invoice.Number,
		Quantity:    decimal.NewFromInt(1),
		Rate:        net,
	}}, nil
}

// CreateCreditNote reverses part or all of a posted sales invoice. The note
// is created and its reversing journal posted in one transaction; the
// credited running total can never exceed the invoice total. Lines carrying
// a restock warehouse also return stocked goods via a posted receipt move.
func CreateCreditNote(ctx context.Context, input *models.NewCreditNote) (*models.CreditNote, error) {
	ctx, span := startSpan(ctx, "CreateCreditNote")
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
	business, err := models.GetBusiness(ctx)
	if err != nil {
		return nil, err
	}
	if input.RestockWarehouseId != nil {
		if _, err := utils.FetchModel[models.Warehouse](ctx, *input.RestockWarehouseId); err != nil {
			return nil, err
		}
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
	switch invoice.Status {
	case models.SalesInvoiceStatusPosted, models.SalesInvoiceStatusPartialPaid, models.SalesInvoiceStatusPaid:
	default:
		tx.Rollback()
		return nil, fmt.Errorf("sales invoice %s is %s: %w", invoice.Number, invoice.Status, utils.ErrorInvalidState)
	}

	inputLines := input.Lines
	if len(inputLines) == 0 {
		inputLines, err = defaultCreditNoteLines(ctx, tx, &invoice)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	subtotal := decimal.Zero
	noteLines := make([]models.CreditNoteLine, 0, len(inputLines))
	for i, line := range inputLines {
		if !line.Quantity.IsPositive() {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if line.Rate.IsNegative() {
			tx.Rollback()
			return nil, fmt.Errorf("line %d: rate cannot be negative", i+1)
		}
		amount := utils.CalculateLineAmount(line.Quantity, line.Rate)
		subtotal = subtotal.Add(amount)
		noteLines = append(noteLines, models.CreditNoteLine{
			BusinessId:  businessId,
			ProductId:   line.ProductId,
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Amount:      amount,
		})
	}
	subtotal = utils.RoundMoney(subtotal)
	taxAmount := utils.CalculateTaxAmount(subtotal, invoice.TaxRate)
	total := subtotal.Add(taxAmount)

	creditable := invoice.CreditableAmount()
	if total.GreaterThan(creditable.Add(utils.MoneyTolerance)) {
		tx.Rollback()
		return nil, fmt.Errorf("credit %s exceeds creditable %s on invoice %s: %w",
			total.StringFixed(2), creditable.StringFixed(2), invoice.Number, utils.ErrorInvalidRange)
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

	number, err := models.NextDocumentNumber(ctx, tx, models.DocumentTypeCreditNote)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	note := models.CreditNote{
		BusinessId:     businessId,
		Number:         number,
		Status:         models.CreditNoteStatusPosted,
		Date:           utils.DateOnly(input.Date),
		SalesInvoiceId: invoice.ID,
		CustomerName:   invoice.CustomerName,
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		Total:          total,
		Reason:         input.Reason,
		Lines:          noteLines,
	}
	if err := tx.WithContext(ctx).Create(&note).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Mirror image of the invoice posting.
	journalLines := []models.NewJournalLine{
		{AccountId: salesAccount.ID, Debit: subtotal, Description: "Credit note " + note.Number},
	}
	if taxAmount.IsPositive() {
		taxAccount, err := models.GetSystemAccount(ctx, tx, models.SystemAccountOutputTax)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		journalLines = append(journalLines, models.NewJournalLine{
			AccountId: taxAccount.ID, Debit: taxAmount, Description: "Credit note " + note.Number + " tax",
		})
	}
	journalLines = append(journalLines, models.NewJournalLine{
		AccountId: receivableAccount.ID, Credit: total, Description: invoice.CustomerName,
	})

	journal, err := models.PostJournalTx(ctx, tx, &models.JournalPostInput{
		Date:          input.Date,
		Description:   "Credit note " + note.Number + " for invoice " + invoice.Number,
		ReferenceType: models.AccountReferenceTypeCreditNote,
		ReferenceId:   &note.ID,
		Lines:         journalLines,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&note).Update("journal_id", journal.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	note.JournalId = &journal.ID

	if input.RestockWarehouseId != nil {
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
			DestinationWarehouseId: input.RestockWarehouseId,
			Posted:                 utils.NewFalse(),
			Reference:              "Credit note " + note.Number,
		}
		for _, line := range noteLines {
			if line.ProductId == nil {
				continue
			}
			var product models.Product
			if err := tx.WithContext(ctx).Where("id = ?", *line.ProductId).First(&product).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			if !product.IsStocked() {
				continue
			}
			move.Lines = append(move.Lines, models.StockMoveLine{
				BusinessId: businessId,
				ProductId:  *line.ProductId,
				Quantity:   line.Quantity,
			})
		}
		if len(move.Lines) > 0 {
			if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			allowNegative := business.AllowNegativeStock != nil && *business.AllowNegativeStock
			if err := applyStockMoveTx(ctx, tx, &move, allowNegative); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := tx.WithContext(ctx).Model(&note).Update("stock_move_id", move.ID).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			note.StockMoveId = &move.ID
		}
	}

	newCredited := invoice.CreditedAmount.Add(total)
	if err := tx.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("id = ?", invoice.ID).
		Update("credited_amount", newCredited).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &note, nil
}
