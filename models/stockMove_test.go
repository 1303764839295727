package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func whptr(v uint) *uint { return &v }

func baseLines() []NewStockMoveLine {
	return []NewStockMoveLine{{ProductId: 1, Quantity: decimal.NewFromInt(5)}}
}

func TestValidateStockMoveShape(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		input   NewStockMove
		wantErr bool
	}{
		{
			name:  "receipt with destination only",
			input: NewStockMove{Type: StockMoveTypeReceipt, Date: date, DestinationWarehouseId: whptr(1), Lines: baseLines()},
		},
		{
			name:    "receipt with source",
			input:   NewStockMove{Type: StockMoveTypeReceipt, Date: date, SourceWarehouseId: whptr(1), DestinationWarehouseId: whptr(2), Lines: baseLines()},
			wantErr: true,
		},
		{
			name:  "issue with source only",
			input: NewStockMove{Type: StockMoveTypeIssue, Date: date, SourceWarehouseId: whptr(1), Lines: baseLines()},
		},
		{
			name:    "issue missing source",
			input:   NewStockMove{Type: StockMoveTypeIssue, Date: date, Lines: baseLines()},
			wantErr: true,
		},
		{
			name:  "transfer between distinct warehouses",
			input: NewStockMove{Type: StockMoveTypeTransfer, Date: date, SourceWarehouseId: whptr(1), DestinationWarehouseId: whptr(2), Lines: baseLines()},
		},
		{
			name:    "transfer to the same warehouse",
			input:   NewStockMove{Type: StockMoveTypeTransfer, Date: date, SourceWarehouseId: whptr(1), DestinationWarehouseId: whptr(1), Lines: baseLines()},
			wantErr: true,
		},
		{
			name:  "quarantine between distinct warehouses",
			input: NewStockMove{Type: StockMoveTypeQuarantine, Date: date, SourceWarehouseId: whptr(1), DestinationWarehouseId: whptr(3), Lines: baseLines()},
		},
		{
			name: "adjustment with signed quantity",
			input: NewStockMove{Type: StockMoveTypeAdjustment, Date: date, DestinationWarehouseId: whptr(1),
				Lines: []NewStockMoveLine{{ProductId: 1, Quantity: decimal.NewFromInt(-3)}}},
		},
		{
			name: "non-adjustment with negative quantity",
			input: NewStockMove{Type: StockMoveTypeReceipt, Date: date, DestinationWarehouseId: whptr(1),
				Lines: []NewStockMoveLine{{ProductId: 1, Quantity: decimal.NewFromInt(-3)}}},
			wantErr: true,
		},
		{
			name: "zero quantity line",
			input: NewStockMove{Type: StockMoveTypeReceipt, Date: date, DestinationWarehouseId: whptr(1),
				Lines: []NewStockMoveLine{{ProductId: 1, Quantity: decimal.Zero}}},
			wantErr: true,
		},
		{
			name:    "unknown move type",
			input:   NewStockMove{Type: StockMoveType("Shrink"), Date: date, DestinationWarehouseId: whptr(1), Lines: baseLines()},
			wantErr: true,
		},
	}
	for _, c := range cases {
		err := validateStockMoveShape(&c.input)
		if c.wantErr && err == nil {
			t.Fatalf("%s: expected an error", c.name)
		}
		if !c.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
	}
}
