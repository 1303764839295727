package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// TransactionNumberSeries holds the numbering prefix per document type.
// Changing a prefix affects future numbers only; issued numbers never change.
type TransactionNumberSeries struct {
	ID           uint         `gorm:"primary_key" json:"id"`
	BusinessId   string       `gorm:"type:char(36);index:idx_series_doc_type,unique" json:"business_id"`
	DocumentType DocumentType `gorm:"size:50;not null;index:idx_series_doc_type,unique" json:"document_type"`
	Prefix       string       `gorm:"size:20;not null" json:"prefix"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type UpdateNumberSeriesInput struct {
	DocumentType DocumentType `json:"document_type" binding:"required"`
	Prefix       string       `json:"prefix" binding:"required"`
}

var defaultPrefixes = map[DocumentType]string{
	DocumentTypeRequisition:   "PR",
	DocumentTypePurchaseOrder: "PO",
	DocumentTypeGoodsReceipt:  "GRN",
	DocumentTypeBill:          "BILL",
	DocumentTypeQuotation:     "QT",
	DocumentTypeSalesOrder:    "SO",
	DocumentTypeSalesInvoice:  "INV",
	DocumentTypeCreditNote:    "CN",
	DocumentTypeStockMove:     "SM",
	DocumentTypeJournal:       "JRN",
}

// getTransactionPrefix resolves the configured prefix inside a transaction,
// falling back to the built-in default when the tenant has no series row.
func getTransactionPrefix(ctx context.Context, tx *gorm.DB, documentType DocumentType) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	var series TransactionNumberSeries
	err := tx.WithContext(ctx).
		Where("business_id = ? AND document_type = ?", businessId, documentType).
		First(&series).Error
	if err == nil && series.Prefix != "" {
		return series.Prefix, nil
	}
	if prefix, ok := defaultPrefixes[documentType]; ok {
		return prefix, nil
	}
	return "", fmt.Errorf("no number series for document type %s", documentType)
}

func UpdateNumberSeries(ctx context.Context, input *UpdateNumberSeriesInput) (*TransactionNumberSeries, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if _, ok := defaultPrefixes[input.DocumentType]; !ok {
		return nil, fmt.Errorf("unknown document type %s", input.DocumentType)
	}

	db := config.GetDB()
	var series TransactionNumberSeries
	err := db.WithContext(ctx).
		Where(TransactionNumberSeries{BusinessId: businessId, DocumentType: input.DocumentType}).
		Assign(map[string]interface{}{"Prefix": input.Prefix}).
		FirstOrCreate(&series).Error
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func GetNumberSeries(ctx context.Context) ([]TransactionNumberSeries, error) {
	return utils.FetchAllModels[TransactionNumberSeries](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Order("document_type")
	})
}
