package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/models/reports"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/corefin/erpledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

// respondError maps domain error kinds onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorInvalidState),
		errors.Is(err, utils.ErrorUnbalanced),
		errors.Is(err, utils.ErrorInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger := config.GetLogger()
		config.LogError(logger, "http", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindJSON[T any](c *gin.Context) (*T, bool) {
	var input T
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return nil, false
	}
	return &input, true
}

func pathId(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func queryDate(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", want YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}

func created(c *gin.Context, v interface{}) { c.JSON(http.StatusCreated, v) }
func respond(c *gin.Context, v interface{}, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- auth and tenant ---

func registerBusinessHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewBusiness](c)
	if !ok {
		return
	}
	business, err := models.CreateBusiness(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, business)
}

func loginHandler(c *gin.Context) {
	input, ok := bindJSON[models.LoginInput](c)
	if !ok {
		return
	}
	token, user, err := models.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func createUserHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewUser](c)
	if !ok {
		return
	}
	user, err := models.CreateUser(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, user)
}

func getBusinessHandler(c *gin.Context) {
	business, err := models.GetBusiness(c.Request.Context())
	respond(c, business, err)
}

func updateBusinessSettingsHandler(c *gin.Context) {
	input, ok := bindJSON[models.UpdateBusinessSettingsInput](c)
	if !ok {
		return
	}
	business, err := models.UpdateBusinessSettings(c.Request.Context(), input)
	respond(c, business, err)
}

func setModuleHandler(c *gin.Context) {
	input, ok := bindJSON[struct {
		Module  string `json:"module" binding:"required"`
		Enabled *bool  `json:"enabled" binding:"required"`
	}](c)
	if !ok {
		return
	}
	module, err := models.SetModuleEnabled(c.Request.Context(), input.Module, *input.Enabled)
	respond(c, module, err)
}

func listModulesHandler(c *gin.Context) {
	modules, err := models.GetEnabledModules(c.Request.Context())
	respond(c, modules, err)
}

// --- chart of accounts ---

func createAccountHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewAccount](c)
	if !ok {
		return
	}
	account, err := models.CreateAccount(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, account)
}

func updateAccountHandler(c *gin.Context) {
	input, ok := bindJSON[models.UpdateAccountInput](c)
	if !ok {
		return
	}
	account, err := models.UpdateAccount(c.Request.Context(), input)
	respond(c, account, err)
}

func listAccountsHandler(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	accounts, err := models.GetAccounts(c.Request.Context(), activeOnly)
	respond(c, accounts, err)
}

func getAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	account, err := models.GetAccount(c.Request.Context(), id)
	respond(c, account, err)
}

func deactivateAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	account, err := models.DeactivateAccount(c.Request.Context(), id)
	respond(c, account, err)
}

func deleteAccountHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteAccount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- fiscal years ---

func createFiscalYearHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewFiscalYear](c)
	if !ok {
		return
	}
	fiscalYear, err := models.CreateFiscalYear(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fiscalYear)
}

func listFiscalYearsHandler(c *gin.Context) {
	years, err := models.GetFiscalYears(c.Request.Context())
	respond(c, years, err)
}

func lockFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	fiscalYear, err := models.LockFiscalYear(c.Request.Context(), id)
	respond(c, fiscalYear, err)
}

func unlockFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	fiscalYear, err := models.UnlockFiscalYear(c.Request.Context(), id)
	respond(c, fiscalYear, err)
}

// --- number series ---

func listNumberSeriesHandler(c *gin.Context) {
	series, err := models.GetNumberSeries(c.Request.Context())
	respond(c, series, err)
}

func updateNumberSeriesHandler(c *gin.Context) {
	input, ok := bindJSON[models.UpdateNumberSeriesInput](c)
	if !ok {
		return
	}
	series, err := models.UpdateNumberSeries(c.Request.Context(), input)
	respond(c, series, err)
}

// --- journals and ledger ---

func createJournalHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewJournal](c)
	if !ok {
		return
	}
	journal, err := models.CreateJournal(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, journal)
}

func getJournalHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	journal, err := models.GetJournal(c.Request.Context(), id)
	respond(c, journal, err)
}

func getLedgerHandler(c *gin.Context) {
	var filter models.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}
	entries, err := models.GetLedger(c.Request.Context(), &filter)
	respond(c, entries, err)
}

func trialBalanceHandler(c *gin.Context) {
	asOf, ok := queryDate(c, "as_of", time.Now())
	if !ok {
		return
	}
	report, err := reports.GetTrialBalance(c.Request.Context(), asOf)
	respond(c, report, err)
}

func profitAndLossHandler(c *gin.Context) {
	fiscalYearId, err := strconv.ParseUint(c.Query("fiscal_year_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fiscal_year_id is required"})
		return
	}
	report, err := reports.GetProfitAndLoss(c.Request.Context(), uint(fiscalYearId))
	respond(c, report, err)
}

func generalLedgerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	from, ok := queryDate(c, "from", time.Now().AddDate(0, -1, 0))
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", time.Now())
	if !ok {
		return
	}
	report, err := reports.GetGeneralLedger(c.Request.Context(), id, from, to)
	respond(c, report, err)
}

// --- inventory ---

func createProductHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewProduct](c)
	if !ok {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, product)
}

func updateProductHandler(c *gin.Context) {
	input, ok := bindJSON[models.UpdateProductInput](c)
	if !ok {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), input)
	respond(c, product, err)
}

func listProductsHandler(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	products, err := models.GetProducts(c.Request.Context(), activeOnly)
	respond(c, products, err)
}

func createWarehouseHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewWarehouse](c)
	if !ok {
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, warehouse)
}

func listWarehousesHandler(c *gin.Context) {
	warehouses, err := models.GetWarehouses(c.Request.Context())
	respond(c, warehouses, err)
}

func createStockMoveHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewStockMove](c)
	if !ok {
		return
	}
	move, err := models.CreateStockMove(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, move)
}

func postStockMoveHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	move, err := workflow.PostStockMove(c.Request.Context(), id)
	respond(c, move, err)
}

func deleteStockMoveHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteStockMove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getStockMoveHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	move, err := models.GetStockMove(c.Request.Context(), id)
	respond(c, move, err)
}

func stockBalancesHandler(c *gin.Context) {
	var productId, warehouseId *uint
	if raw := c.Query("product_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
			return
		}
		id := uint(v)
		productId = &id
	}
	if raw := c.Query("warehouse_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid warehouse_id"})
			return
		}
		id := uint(v)
		warehouseId = &id
	}
	balances, err := models.GetStockBalances(c.Request.Context(), productId, warehouseId)
	respond(c, balances, err)
}

// --- procure to pay ---

func createRequisitionHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewRequisition](c)
	if !ok {
		return
	}
	requisition, err := models.CreateRequisition(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, requisition)
}

func requisitionTransitionHandler(fn func(c *gin.Context, id uint) (*models.Requisition, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		requisition, err := fn(c, id)
		respond(c, requisition, err)
	}
}

func convertRequisitionHandler(c *gin.Context) {
	input, ok := bindJSON[models.ConvertRequisitionInput](c)
	if !ok {
		return
	}
	order, err := models.ConvertRequisitionToPurchaseOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, order)
}

func createPurchaseOrderHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewPurchaseOrder](c)
	if !ok {
		return
	}
	order, err := models.CreatePurchaseOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, order)
}

func confirmPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.ConfirmPurchaseOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func cancelPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.CancelPurchaseOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func getPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetPurchaseOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func createGoodsReceiptHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewGoodsReceipt](c)
	if !ok {
		return
	}
	receipt, err := workflow.CreateGoodsReceipt(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, receipt)
}

func billFromPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := workflow.CreateBillFromPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, bill)
}

func createBillHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewBill](c)
	if !ok {
		return
	}
	bill, err := workflow.CreateBill(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, bill)
}

func confirmBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := workflow.ConfirmBill(c.Request.Context(), id)
	respond(c, bill, err)
}

func cancelBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := models.CancelBill(c.Request.Context(), id)
	respond(c, bill, err)
}

func createBillPaymentHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewBillPayment](c)
	if !ok {
		return
	}
	payment, err := workflow.CreateBillPayment(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, payment)
}

func getBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := models.GetBill(c.Request.Context(), id)
	respond(c, bill, err)
}

// --- order to cash ---

func createQuotationHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewQuotation](c)
	if !ok {
		return
	}
	quotation, err := models.CreateQuotation(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, quotation)
}

func quotationTransitionHandler(fn func(c *gin.Context, id uint) (*models.Quotation, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		quotation, err := fn(c, id)
		respond(c, quotation, err)
	}
}

func convertQuotationHandler(c *gin.Context) {
	input, ok := bindJSON[models.ConvertQuotationInput](c)
	if !ok {
		return
	}
	order, err := models.ConvertQuotationToSalesOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, order)
}

func createSalesOrderHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewSalesOrder](c)
	if !ok {
		return
	}
	order, err := models.CreateSalesOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, order)
}

func confirmSalesOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.ConfirmSalesOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func fulfillSalesOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := workflow.FulfillSalesOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func cancelSalesOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.CancelSalesOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func invoiceFromSalesOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := workflow.CreateInvoiceFromSalesOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, invoice)
}

func createSalesInvoiceHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewSalesInvoice](c)
	if !ok {
		return
	}
	invoice, err := workflow.CreateSalesInvoice(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, invoice)
}

func confirmInvoiceHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := workflow.ConfirmInvoice(c.Request.Context(), id)
	respond(c, invoice, err)
}

func createInvoicePaymentHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewInvoicePayment](c)
	if !ok {
		return
	}
	payment, err := workflow.CreateInvoicePayment(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, payment)
}

func getSalesInvoiceHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.GetSalesInvoice(c.Request.Context(), id)
	respond(c, invoice, err)
}

func createCreditNoteHandler(c *gin.Context) {
	input, ok := bindJSON[models.NewCreditNote](c)
	if !ok {
		return
	}
	note, err := workflow.CreateCreditNote(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, note)
}

func getCreditNoteHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	note, err := models.GetCreditNote(c.Request.Context(), id)
	respond(c, note, err)
}
