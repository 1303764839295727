package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentSequence is the persisted counter behind document numbering. One
// row per tenant and document type; NextValue is the number the next
// document will take. A counter row is never derived from counting issued
// documents, so deleting or renaming documents can never reissue a number.
type DocumentSequence struct {
	ID           uint         `gorm:"primary_key" json:"id"`
	BusinessId   string       `gorm:"type:char(36);index:idx_sequence_doc_type,unique" json:"business_id"`
	DocumentType DocumentType `gorm:"size:50;not null;index:idx_sequence_doc_type,unique" json:"document_type"`
	NextValue    int64        `gorm:"not null;default:1" json:"next_value"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

const sequenceRetryAttempts = 3

// Losing the insert race on every attempt means another issuer kept winning;
// the caller sees it as a Conflict, not an internal failure.
func errSequenceExhausted(documentType DocumentType, lastErr error) error {
	return fmt.Errorf("could not allocate document number for %s (%v): %w", documentType, lastErr, utils.ErrorConflict)
}

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// FormatDocumentNumber renders a counter value with its prefix, zero padded
// to five digits. Values past 99999 widen naturally.
func FormatDocumentNumber(prefix string, value int64) string {
	return fmt.Sprintf("%s-%05d", prefix, value)
}

// NextDocumentNumber issues the next number for a document type inside the
// caller's transaction. The counter row is locked FOR UPDATE so concurrent
// issuers serialize; the increment commits or rolls back with the document
// itself, which makes numbers dense but not gapless.
func NextDocumentNumber(ctx context.Context, tx *gorm.DB, documentType DocumentType) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	prefix, err := getTransactionPrefix(ctx, tx, documentType)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < sequenceRetryAttempts; attempt++ {
		var seq DocumentSequence
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(DocumentSequence{BusinessId: businessId, DocumentType: documentType}).
			FirstOrCreate(&seq).Error
		if err != nil {
			// Two issuers can race the first insert; the loser retries and
			// finds the winner's row.
			if isDuplicateKeyErr(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		if seq.NextValue < 1 {
			seq.NextValue = 1
		}

		value := seq.NextValue
		err = tx.WithContext(ctx).Model(&DocumentSequence{}).
			Where("id = ?", seq.ID).
			Update("next_value", value+1).Error
		if err != nil {
			return "", err
		}
		return FormatDocumentNumber(prefix, value), nil
	}
	return "", errSequenceExhausted(documentType, lastErr)
}
