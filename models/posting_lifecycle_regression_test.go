package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/models/reports"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/corefin/erpledger_backend/workflow"
	"github.com/shopspring/decimal"
)

// Integration tests for the posting paths. They exercise real MySQL row
// locking and the Redis-backed module cache, so they need Docker:
//
//	INTEGRATION_TESTS=1 go test ./models -run Lifecycle -v

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "erpledger_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if err := models.AutoMigrateModels(config.GetDB()); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, "test-user")
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func newTestBusiness(t *testing.T, ctx context.Context, name string) (context.Context, *models.Business) {
	t.Helper()
	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: name})
	if err != nil {
		t.Fatalf("CreateBusiness(%s): %v", name, err)
	}
	return utils.SetBusinessIdInContext(ctx, biz.ID), biz
}

func defaultWarehouse(t *testing.T, ctx context.Context) *models.Warehouse {
	t.Helper()
	warehouses, err := models.GetWarehouses(ctx)
	if err != nil {
		t.Fatalf("GetWarehouses: %v", err)
	}
	for i := range warehouses {
		if warehouses[i].Code == "MAIN" {
			return &warehouses[i]
		}
	}
	t.Fatalf("default warehouse MAIN not seeded")
	return nil
}

func onHand(t *testing.T, ctx context.Context, productId, warehouseId uint) decimal.Decimal {
	t.Helper()
	rows, err := models.GetStockBalances(ctx, &productId, &warehouseId)
	if err != nil {
		t.Fatalf("GetStockBalances: %v", err)
	}
	if len(rows) == 0 {
		return decimal.Zero
	}
	return rows[0].Quantity
}

func TestPurchaseToSalesPostingLifecycle(t *testing.T) {
	ctx := setupIntegration(t)
	ctx, _ = newTestBusiness(t, ctx, "Lifecycle Co")
	warehouse := defaultWarehouse(t, ctx)

	if _, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      "FY2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		SKU:          "WIDGET-1",
		Name:         "Widget",
		StandardCost: decimal.NewFromInt(10),
		SalesPrice:   decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	docDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Purchase order: 10 units @ 8, 5% tax.
	po, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		Date:        docDate,
		VendorName:  "Acme Supply",
		WarehouseId: warehouse.ID,
		TaxRate:     decimal.NewFromInt(5),
		Lines: []models.NewPurchaseOrderLine{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(8)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if po.Total.Cmp(decimal.NewFromInt(84)) != 0 {
		t.Fatalf("expected PO total 84, got %s", po.Total)
	}
	if po.Number == "" {
		t.Fatalf("PO number not issued")
	}
	if _, err := models.ConfirmPurchaseOrder(ctx, po.ID); err != nil {
		t.Fatalf("ConfirmPurchaseOrder: %v", err)
	}

	// Partial receipt leaves the order Confirmed and moves stock (the tenant
	// defaults to recognizing stock at receipt with auto-post on).
	if _, err := workflow.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: po.ID,
		Date:            docDate,
		Lines: []models.NewGoodsReceiptLine{
			{PurchaseOrderLineId: po.Lines[0].ID, ReceivedQty: decimal.NewFromInt(4)},
		},
	}); err != nil {
		t.Fatalf("CreateGoodsReceipt(partial): %v", err)
	}
	po, err = models.GetPurchaseOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPurchaseOrder: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusConfirmed {
		t.Fatalf("expected PO Confirmed after partial receipt, got %s", po.Status)
	}
	if got := onHand(t, ctx, product.ID, warehouse.ID); got.Cmp(decimal.NewFromInt(4)) != 0 {
		t.Fatalf("expected 4 on hand after partial receipt, got %s", got)
	}

	// Over-receipt of the remaining 6 must be rejected whole.
	_, err = workflow.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: po.ID,
		Date:            docDate,
		Lines: []models.NewGoodsReceiptLine{
			{PurchaseOrderLineId: po.Lines[0].ID, ReceivedQty: decimal.NewFromInt(7)},
		},
	})
	if !errors.Is(err, utils.ErrorInvalidRange) {
		t.Fatalf("expected ErrorInvalidRange for over-receipt, got %v", err)
	}

	// Receiving the rest flips the order to Received.
	if _, err := workflow.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: po.ID,
		Date:            docDate,
		Lines: []models.NewGoodsReceiptLine{
			{PurchaseOrderLineId: po.Lines[0].ID, ReceivedQty: decimal.NewFromInt(6)},
		},
	}); err != nil {
		t.Fatalf("CreateGoodsReceipt(final): %v", err)
	}
	po, _ = models.GetPurchaseOrder(ctx, po.ID)
	if po.Status != models.PurchaseOrderStatusReceived {
		t.Fatalf("expected PO Received after full receipt, got %s", po.Status)
	}
	if got := onHand(t, ctx, product.ID, warehouse.ID); got.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("expected 10 on hand, got %s", got)
	}

	// Bill the order, post it, and settle it.
	bill, err := workflow.CreateBillFromPurchaseOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("CreateBillFromPurchaseOrder: %v", err)
	}
	if bill.Total.Cmp(po.Total) != 0 {
		t.Fatalf("bill total %s does not carry the PO total %s", bill.Total, po.Total)
	}
	if _, err := workflow.CreateBillFromPurchaseOrder(ctx, po.ID); err == nil {
		t.Fatalf("expected second bill for the same PO to be rejected")
	}
	bill, err = workflow.ConfirmBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ConfirmBill: %v", err)
	}
	if bill.Status != models.BillStatusPosted || bill.JournalId == nil {
		t.Fatalf("expected bill Posted with a journal, got %s journal=%v", bill.Status, bill.JournalId)
	}

	_, err = workflow.CreateBillPayment(ctx, &models.NewBillPayment{
		BillId: bill.ID,
		Date:   docDate,
		Amount: decimal.NewFromInt(100),
	})
	if !errors.Is(err, utils.ErrorInvalidRange) {
		t.Fatalf("expected ErrorInvalidRange for overpayment, got %v", err)
	}
	if _, err := workflow.CreateBillPayment(ctx, &models.NewBillPayment{
		BillId: bill.ID,
		Date:   docDate,
		Amount: decimal.NewFromInt(84),
	}); err != nil {
		t.Fatalf("CreateBillPayment: %v", err)
	}
	bill, _ = models.GetBill(ctx, bill.ID)
	if bill.Status != models.BillStatusPaid {
		t.Fatalf("expected bill Paid after settling in full, got %s", bill.Status)
	}

	// Sales side: order 3 units @ 25, fulfill, invoice, pay.
	so, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		Date:         docDate,
		CustomerName: "Bravo Retail",
		WarehouseId:  warehouse.ID,
		Lines: []models.NewSalesOrderLine{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(3), Rate: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if _, err := models.ConfirmSalesOrder(ctx, so.ID); err != nil {
		t.Fatalf("ConfirmSalesOrder: %v", err)
	}
	if _, err := workflow.FulfillSalesOrder(ctx, so.ID); err != nil {
		t.Fatalf("FulfillSalesOrder: %v", err)
	}
	if got := onHand(t, ctx, product.ID, warehouse.ID); got.Cmp(decimal.NewFromInt(7)) != 0 {
		t.Fatalf("expected 7 on hand after fulfillment, got %s", got)
	}

	invoice, err := workflow.CreateInvoiceFromSalesOrder(ctx, so.ID)
	if err != nil {
		t.Fatalf("CreateInvoiceFromSalesOrder: %v", err)
	}
	if _, err := workflow.CreateInvoiceFromSalesOrder(ctx, so.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("expected ErrorConflict for a second invoice on the same order, got %v", err)
	}
	invoice, err = workflow.ConfirmInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("ConfirmInvoice: %v", err)
	}
	if invoice.Status != models.SalesInvoiceStatusPosted || invoice.JournalId == nil {
		t.Fatalf("expected invoice Posted with a journal, got %s journal=%v", invoice.Status, invoice.JournalId)
	}
	if _, err := workflow.CreateInvoicePayment(ctx, &models.NewInvoicePayment{
		SalesInvoiceId: invoice.ID,
		Date:           docDate,
		Amount:         invoice.Total,
	}); err != nil {
		t.Fatalf("CreateInvoicePayment: %v", err)
	}

	// Credit beyond the invoice total is rejected; a partial credit with
	// restock posts and returns the unit to stock.
	_, err = workflow.CreateCreditNote(ctx, &models.NewCreditNote{
		SalesInvoiceId: invoice.ID,
		Date:           docDate,
		Lines: []models.NewCreditNoteLine{
			{ProductId: &product.ID, Quantity: decimal.NewFromInt(4), Rate: decimal.NewFromInt(25)},
		},
	})
	if !errors.Is(err, utils.ErrorInvalidRange) {
		t.Fatalf("expected ErrorInvalidRange for credit past the invoice total, got %v", err)
	}
	cn, err := workflow.CreateCreditNote(ctx, &models.NewCreditNote{
		SalesInvoiceId:     invoice.ID,
		Date:               docDate,
		RestockWarehouseId: &warehouse.ID,
		Lines: []models.NewCreditNoteLine{
			{ProductId: &product.ID, Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	if cn.Status != models.CreditNoteStatusPosted {
		t.Fatalf("expected credit note Posted, got %s", cn.Status)
	}
	if got := onHand(t, ctx, product.ID, warehouse.ID); got.Cmp(decimal.NewFromInt(8)) != 0 {
		t.Fatalf("expected 8 on hand after restock, got %s", got)
	}

	// Every posting balanced, so the trial balance must too.
	tb, err := reports.GetTrialBalance(ctx, docDate)
	if err != nil {
		t.Fatalf("GetTrialBalance: %v", err)
	}
	if tb.TotalDebit.Cmp(tb.TotalCredit) != 0 {
		t.Fatalf("trial balance out of balance: debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	}
	if tb.TotalDebit.IsZero() {
		t.Fatalf("expected postings in the trial balance")
	}
}

func TestJournalPostingGuards(t *testing.T) {
	ctx := setupIntegration(t)
	ctx, _ = newTestBusiness(t, ctx, "Journal Co")

	fy, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      "FY2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}

	// Overlapping years are rejected.
	_, err = models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      "FY2026-B",
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, utils.ErrorInvalidRange) {
		t.Fatalf("expected ErrorInvalidRange for overlapping fiscal years, got %v", err)
	}

	accounts, err := models.GetAccounts(ctx, true)
	if err != nil || len(accounts) < 2 {
		t.Fatalf("expected seeded accounts, got %d (%v)", len(accounts), err)
	}
	debitAcct, creditAcct := accounts[0].ID, accounts[1].ID
	inYear := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err = models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID,
		Date:         inYear,
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(100)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(90)},
		},
	})
	if !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("expected ErrorUnbalanced, got %v", err)
	}

	// A date outside the named year is rejected.
	_, err = models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID,
		Date:         time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC),
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(100)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(100)},
		},
	})
	if !errors.Is(err, utils.ErrorInvalidRange) {
		t.Fatalf("expected ErrorInvalidRange for a date outside the fiscal year, got %v", err)
	}

	// A fiscal year id that does not exist for this tenant is NotFound.
	_, err = models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID + 9999,
		Date:         inYear,
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(100)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(100)},
		},
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound for an unknown fiscal year, got %v", err)
	}

	// Locked years refuse postings until unlocked.
	if _, err := models.LockFiscalYear(ctx, fy.ID); err != nil {
		t.Fatalf("LockFiscalYear: %v", err)
	}
	_, err = models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID,
		Date:         inYear,
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(100)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(100)},
		},
	})
	if !errors.Is(err, utils.ErrorForbidden) {
		t.Fatalf("expected ErrorForbidden for a locked fiscal year, got %v", err)
	}
	if _, err := models.UnlockFiscalYear(ctx, fy.ID); err != nil {
		t.Fatalf("UnlockFiscalYear: %v", err)
	}

	journal, err := models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID,
		Date:         inYear,
		Description:  "opening entry",
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(100)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateJournal: %v", err)
	}
	if !strings.HasPrefix(journal.Number, "JRN-") {
		t.Fatalf("expected a JRN- number, got %q", journal.Number)
	}
	if journal.TotalAmount.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("expected journal total 100, got %s", journal.TotalAmount)
	}

	// A posting dated after the cutoff stays out of the trial balance.
	_, err = models.CreateJournal(ctx, &models.NewJournal{
		FiscalYearId: fy.ID,
		Date:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Description:  "later entry",
		Lines: []models.NewJournalLine{
			{AccountId: debitAcct, Debit: decimal.NewFromInt(40)},
			{AccountId: creditAcct, Credit: decimal.NewFromInt(40)},
		},
	})
	if err != nil {
		t.Fatalf("CreateJournal: %v", err)
	}
	tb, err := reports.GetTrialBalance(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalance: %v", err)
	}
	if tb.TotalDebit.Cmp(decimal.NewFromInt(100)) != 0 || tb.TotalCredit.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("expected 100/100 as of June, got %s/%s", tb.TotalDebit, tb.TotalCredit)
	}
	tb, err = reports.GetTrialBalance(ctx, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalance: %v", err)
	}
	if tb.TotalDebit.Cmp(decimal.NewFromInt(140)) != 0 {
		t.Fatalf("expected 140 debit through year end, got %s", tb.TotalDebit)
	}
}

func TestStockGuardsAndTenantIsolation(t *testing.T) {
	ctx := setupIntegration(t)
	ctxA, _ := newTestBusiness(t, ctx, "Tenant A")
	warehouse := defaultWarehouse(t, ctxA)

	product, err := models.CreateProduct(ctxA, &models.NewProduct{
		SKU:  "GADGET-1",
		Name: "Gadget",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	// Issuing stock that is not there fails whole and leaves the move draft.
	move, err := models.CreateStockMove(ctxA, &models.NewStockMove{
		Type:              models.StockMoveTypeIssue,
		Date:              time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		SourceWarehouseId: &warehouse.ID,
		Lines: []models.NewStockMoveLine{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("CreateStockMove: %v", err)
	}
	_, err = workflow.PostStockMove(ctxA, move.ID)
	if !errors.Is(err, utils.ErrorInsufficientStock) {
		t.Fatalf("expected ErrorInsufficientStock, got %v", err)
	}
	move, _ = models.GetStockMove(ctxA, move.ID)
	if move.Posted != nil && *move.Posted {
		t.Fatalf("failed posting must leave the move unposted")
	}
	if got := onHand(t, ctxA, product.ID, warehouse.ID); !got.IsZero() {
		t.Fatalf("failed posting must not change balances, got %s", got)
	}

	// Concurrent creators must never share a document number.
	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := models.CreateRequisition(ctxA, &models.NewRequisition{
				Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
				Lines: []models.NewRequisitionLine{
					{ProductId: product.ID, Quantity: decimal.NewFromInt(1)},
				},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[req.Number] = true
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("concurrent CreateRequisition failed: %v", errs[0])
	}
	if len(numbers) != n {
		t.Fatalf("expected %d distinct requisition numbers, got %d", n, len(numbers))
	}

	// Another tenant must not see tenant A's rows.
	ctxB, _ := newTestBusiness(t, ctx, "Tenant B")
	if _, err := models.GetProduct(ctxB, product.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound across tenants, got %v", err)
	}
	if _, err := models.GetStockMove(ctxB, move.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound for tenant A's stock move, got %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("erpledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("erpledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=erpledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
