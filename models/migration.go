package models

import "gorm.io/gorm"

// AutoMigrateModels creates or updates the schema for every persisted type.
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Business{},
		&BusinessModule{},
		&User{},
		&Account{},
		&FiscalYear{},
		&TransactionNumberSeries{},
		&DocumentSequence{},
		&Journal{},
		&JournalLine{},
		&Product{},
		&Warehouse{},
		&StockMove{},
		&StockMoveLine{},
		&StockSummary{},
		&Requisition{},
		&RequisitionLine{},
		&PurchaseOrder{},
		&PurchaseOrderLine{},
		&GoodsReceipt{},
		&GoodsReceiptLine{},
		&Bill{},
		&BillLine{},
		&BillPayment{},
		&Quotation{},
		&QuotationLine{},
		&SalesOrder{},
		&SalesOrderLine{},
		&SalesInvoice{},
		&SalesInvoiceLine{},
		&CreditNote{},
		&CreditNoteLine{},
		&InvoicePayment{},
	)
}
