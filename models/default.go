package models

import (
	"context"

	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// Starter chart of accounts. System accounts carry a SystemDefaultCode so
// document postings can resolve them without configuration; they can be
// renamed but never deleted.
var defaultAccounts = []Account{
	{Code: "1000", Name: "Cash", MainType: AccountMainTypeAsset, SystemDefaultCode: SystemAccountCash},
	{Code: "1100", Name: "Accounts Receivable", MainType: AccountMainTypeAsset, SystemDefaultCode: SystemAccountReceivable},
	{Code: "1200", Name: "Inventory", MainType: AccountMainTypeAsset, SystemDefaultCode: SystemAccountInventory},
	{Code: "2000", Name: "Accounts Payable", MainType: AccountMainTypeLiability, SystemDefaultCode: SystemAccountPayable},
	{Code: "2100", Name: "Input Tax", MainType: AccountMainTypeAsset, SystemDefaultCode: SystemAccountInputTax},
	{Code: "2200", Name: "Output Tax", MainType: AccountMainTypeLiability, SystemDefaultCode: SystemAccountOutputTax},
	{Code: "3000", Name: "Opening Balance Equity", MainType: AccountMainTypeEquity, SystemDefaultCode: SystemAccountOpeningBalance},
	{Code: "4000", Name: "Sales Revenue", MainType: AccountMainTypeIncome, SystemDefaultCode: SystemAccountSales},
	{Code: "5000", Name: "Cost of Goods Sold", MainType: AccountMainTypeExpense, SystemDefaultCode: SystemAccountCOGS},
	{Code: "6000", Name: "General Expenses", MainType: AccountMainTypeExpense},
}

var defaultModules = []string{
	ModuleAccounting,
	ModuleInventory,
	ModulePurchase,
	ModuleSales,
}

var defaultNumberSeries = []TransactionNumberSeries{
	{DocumentType: DocumentTypeRequisition, Prefix: "PR"},
	{DocumentType: DocumentTypePurchaseOrder, Prefix: "PO"},
	{DocumentType: DocumentTypeGoodsReceipt, Prefix: "GRN"},
	{DocumentType: DocumentTypeBill, Prefix: "BILL"},
	{DocumentType: DocumentTypeQuotation, Prefix: "QT"},
	{DocumentType: DocumentTypeSalesOrder, Prefix: "SO"},
	{DocumentType: DocumentTypeSalesInvoice, Prefix: "INV"},
	{DocumentType: DocumentTypeCreditNote, Prefix: "CN"},
	{DocumentType: DocumentTypeStockMove, Prefix: "SM"},
	{DocumentType: DocumentTypeJournal, Prefix: "JRN"},
}

func CreateDefaultAccounts(tx *gorm.DB, ctx context.Context, businessId string) error {
	for _, a := range defaultAccounts {
		account := a
		account.BusinessId = businessId
		account.Active = utils.NewTrue()
		if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
			return err
		}
	}
	return nil
}

func CreateDefaultModules(tx *gorm.DB, ctx context.Context, businessId string) ([]BusinessModule, error) {
	modules := make([]BusinessModule, 0, len(defaultModules))
	for _, name := range defaultModules {
		module := BusinessModule{
			BusinessId: businessId,
			Module:     name,
			Enabled:    utils.NewTrue(),
		}
		if err := tx.WithContext(ctx).Create(&module).Error; err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func CreateDefaultWarehouse(tx *gorm.DB, ctx context.Context, businessId string) error {
	warehouse := Warehouse{
		BusinessId:   businessId,
		Code:         "MAIN",
		Name:         "Main Warehouse",
		IsQuarantine: utils.NewFalse(),
		Active:       utils.NewTrue(),
	}
	return tx.WithContext(ctx).Create(&warehouse).Error
}

func CreateDefaultNumberSeries(tx *gorm.DB, ctx context.Context, businessId string) error {
	for _, s := range defaultNumberSeries {
		series := s
		series.BusinessId = businessId
		if err := tx.WithContext(ctx).Create(&series).Error; err != nil {
			return err
		}
	}
	return nil
}
