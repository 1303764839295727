package workflow

import (
	"testing"

	"github.com/corefin/erpledger_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the delta
// expansion that posting relies on: collapsing per product/warehouse and a
// deterministic lock order so concurrent posters cannot deadlock.

func uptr(v uint) *uint { return &v }

func qty(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeStockDeltasTransferProducesBothSides(t *testing.T) {
	move := &models.StockMove{
		Type:                   models.StockMoveTypeTransfer,
		SourceWarehouseId:      uptr(1),
		DestinationWarehouseId: uptr(2),
		Lines: []models.StockMoveLine{
			{ProductId: 10, Quantity: qty("5")},
		},
	}
	deltas, err := ComputeStockDeltas(move)
	if err != nil {
		t.Fatalf("ComputeStockDeltas: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[0].WarehouseId != 1 || deltas[0].Quantity.Cmp(qty("-5")) != 0 {
		t.Fatalf("expected -5 at source warehouse 1, got %s at %d", deltas[0].Quantity, deltas[0].WarehouseId)
	}
	if deltas[1].WarehouseId != 2 || deltas[1].Quantity.Cmp(qty("5")) != 0 {
		t.Fatalf("expected +5 at destination warehouse 2, got %s at %d", deltas[1].Quantity, deltas[1].WarehouseId)
	}
}

func TestComputeStockDeltasCollapsesSameProductWarehouse(t *testing.T) {
	move := &models.StockMove{
		Type:                   models.StockMoveTypeReceipt,
		DestinationWarehouseId: uptr(3),
		Lines: []models.StockMoveLine{
			{ProductId: 7, Quantity: qty("2")},
			{ProductId: 7, Quantity: qty("3")},
			{ProductId: 8, Quantity: qty("1")},
		},
	}
	deltas, err := ComputeStockDeltas(move)
	if err != nil {
		t.Fatalf("ComputeStockDeltas: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected collapsed deltas for 2 products, got %d", len(deltas))
	}
	if deltas[0].ProductId != 7 || deltas[0].Quantity.Cmp(qty("5")) != 0 {
		t.Fatalf("expected product 7 collapsed to +5, got product %d qty %s", deltas[0].ProductId, deltas[0].Quantity)
	}
}

func TestComputeStockDeltasDropsZeroNetLines(t *testing.T) {
	// A signed adjustment that nets to zero should produce no delta at all.
	move := &models.StockMove{
		Type:                   models.StockMoveTypeAdjustment,
		DestinationWarehouseId: uptr(1),
		Lines: []models.StockMoveLine{
			{ProductId: 4, Quantity: qty("10")},
			{ProductId: 4, Quantity: qty("-10")},
		},
	}
	deltas, err := ComputeStockDeltas(move)
	if err != nil {
		t.Fatalf("ComputeStockDeltas: %v", err)
	}
	if len(deltas) != 0 {
		t.Fatalf("expected no deltas for a zero-net adjustment, got %d", len(deltas))
	}
}

func TestComputeStockDeltasOrderIsDeterministic(t *testing.T) {
	move := &models.StockMove{
		Type:                   models.StockMoveTypeTransfer,
		SourceWarehouseId:      uptr(9),
		DestinationWarehouseId: uptr(2),
		Lines: []models.StockMoveLine{
			{ProductId: 30, Quantity: qty("1")},
			{ProductId: 10, Quantity: qty("1")},
			{ProductId: 20, Quantity: qty("1")},
		},
	}
	var first []stockDelta
	for i := 0; i < 50; i++ {
		deltas, err := ComputeStockDeltas(move)
		if err != nil {
			t.Fatalf("ComputeStockDeltas: %v", err)
		}
		if first == nil {
			first = deltas
			for j := 1; j < len(deltas); j++ {
				prev, cur := deltas[j-1], deltas[j]
				if prev.ProductId > cur.ProductId ||
					(prev.ProductId == cur.ProductId && prev.WarehouseId >= cur.WarehouseId) {
					t.Fatalf("deltas not ordered at %d: %+v", j, deltas)
				}
			}
			continue
		}
		for j := range deltas {
			if deltas[j].ProductId != first[j].ProductId || deltas[j].WarehouseId != first[j].WarehouseId {
				t.Fatalf("iteration %d produced a different order: %+v vs %+v", i, deltas, first)
			}
		}
	}
}

func TestComputeStockDeltasRejectsUnknownType(t *testing.T) {
	move := &models.StockMove{
		Type:                   models.StockMoveType("Teleport"),
		DestinationWarehouseId: uptr(1),
		Lines:                  []models.StockMoveLine{{ProductId: 1, Quantity: qty("1")}},
	}
	if _, err := ComputeStockDeltas(move); err == nil {
		t.Fatalf("expected error for unknown move type")
	}
}

func TestNegativeStockAllowedGatedByMoveType(t *testing.T) {
	cases := []struct {
		moveType     models.StockMoveType
		tenantAllows bool
		want         bool
	}{
		{models.StockMoveTypeAdjustment, true, true},
		{models.StockMoveTypeIssue, true, true},
		{models.StockMoveTypeTransfer, true, false},
		{models.StockMoveTypeQuarantine, true, false},
		{models.StockMoveTypeReceipt, true, false},
		{models.StockMoveTypeAdjustment, false, false},
		{models.StockMoveTypeIssue, false, false},
	}
	for _, c := range cases {
		if got := negativeStockAllowed(c.moveType, c.tenantAllows); got != c.want {
			t.Fatalf("negativeStockAllowed(%s, %v): expected %v, got %v", c.moveType, c.tenantAllows, c.want, got)
		}
	}
}
