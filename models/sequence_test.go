package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/corefin/erpledger_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestFormatDocumentNumberPadding(t *testing.T) {
	cases := []struct {
		prefix string
		value  int64
		want   string
	}{
		{"PO", 1, "PO-00001"},
		{"INV", 42, "INV-00042"},
		{"BILL", 99999, "BILL-99999"},
		{"SO", 100000, "SO-100000"}, // widens past five digits
	}
	for _, c := range cases {
		got := FormatDocumentNumber(c.prefix, c.value)
		if got != c.want {
			t.Fatalf("FormatDocumentNumber(%q, %d): expected %q, got %q", c.prefix, c.value, c.want, got)
		}
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	if !isDuplicateKeyErr(gorm.ErrDuplicatedKey) {
		t.Fatalf("gorm.ErrDuplicatedKey must be recognized")
	}
	wrapped := fmt.Errorf("insert: %w", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !isDuplicateKeyErr(wrapped) {
		t.Fatalf("wrapped MySQL 1062 must be recognized")
	}
	other := &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}
	if isDuplicateKeyErr(other) {
		t.Fatalf("MySQL 1213 must not be treated as a duplicate key")
	}
	if isDuplicateKeyErr(errors.New("boom")) {
		t.Fatalf("arbitrary errors must not be treated as a duplicate key")
	}
}

func TestSequenceExhaustionIsConflict(t *testing.T) {
	err := errSequenceExhausted(DocumentTypePurchaseOrder, gorm.ErrDuplicatedKey)
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("expected ErrorConflict after retry exhaustion, got %v", err)
	}
}
