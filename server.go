package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/middlewares"
	"github.com/corefin/erpledger_backend/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const defaultPort = "8080"

func main() {
	godotenv.Load()
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if os.Getenv("SKIP_AUTO_MIGRATE") != "1" {
		if err := models.AutoMigrateModels(config.GetDB()); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	router := buildRouter()
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("forced shutdown: %v", err)
	}
}

func buildRouter() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Correlation-Id"},
		ExposeHeaders:    []string{"X-Correlation-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.AuthMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// Unauthenticated: tenant provisioning and login.
	api.POST("/businesses", registerBusinessHandler)
	api.POST("/login", loginHandler)

	authed := api.Group("", middlewares.RequireAuth())

	authed.GET("/business", getBusinessHandler)
	authed.PATCH("/business/settings", updateBusinessSettingsHandler)
	authed.GET("/modules", listModulesHandler)
	authed.PUT("/modules", setModuleHandler)
	authed.POST("/users", createUserHandler)

	authed.POST("/accounts", createAccountHandler)
	authed.GET("/accounts", listAccountsHandler)
	authed.GET("/accounts/:id", getAccountHandler)
	authed.PUT("/accounts", updateAccountHandler)
	authed.POST("/accounts/:id/deactivate", deactivateAccountHandler)
	authed.DELETE("/accounts/:id", deleteAccountHandler)
	authed.GET("/accounts/:id/ledger", generalLedgerHandler)

	authed.POST("/fiscal-years", createFiscalYearHandler)
	authed.GET("/fiscal-years", listFiscalYearsHandler)
	authed.POST("/fiscal-years/:id/lock", lockFiscalYearHandler)
	authed.POST("/fiscal-years/:id/unlock", unlockFiscalYearHandler)

	authed.GET("/number-series", listNumberSeriesHandler)
	authed.PUT("/number-series", updateNumberSeriesHandler)

	authed.POST("/journals", createJournalHandler)
	authed.GET("/journals/:id", getJournalHandler)
	authed.GET("/ledger", getLedgerHandler)
	authed.GET("/reports/trial-balance", trialBalanceHandler)
	authed.GET("/reports/profit-and-loss", profitAndLossHandler)

	authed.POST("/products", createProductHandler)
	authed.GET("/products", listProductsHandler)
	authed.PUT("/products", updateProductHandler)
	authed.POST("/warehouses", createWarehouseHandler)
	authed.GET("/warehouses", listWarehousesHandler)
	authed.POST("/stock-moves", createStockMoveHandler)
	authed.GET("/stock-moves/:id", getStockMoveHandler)
	authed.POST("/stock-moves/:id/post", postStockMoveHandler)
	authed.DELETE("/stock-moves/:id", deleteStockMoveHandler)
	authed.GET("/stock-balances", stockBalancesHandler)

	authed.POST("/requisitions", createRequisitionHandler)
	authed.POST("/requisitions/:id/submit", requisitionTransitionHandler(func(c *gin.Context, id uint) (*models.Requisition, error) {
		return models.SubmitRequisition(c.Request.Context(), id)
	}))
	authed.POST("/requisitions/:id/approve", requisitionTransitionHandler(func(c *gin.Context, id uint) (*models.Requisition, error) {
		return models.ApproveRequisition(c.Request.Context(), id)
	}))
	authed.POST("/requisitions/:id/reject", requisitionTransitionHandler(func(c *gin.Context, id uint) (*models.Requisition, error) {
		return models.RejectRequisition(c.Request.Context(), id)
	}))
	authed.POST("/requisitions/:id/cancel", requisitionTransitionHandler(func(c *gin.Context, id uint) (*models.Requisition, error) {
		return models.CancelRequisition(c.Request.Context(), id)
	}))
	authed.POST("/requisitions/convert", convertRequisitionHandler)

	authed.POST("/purchase-orders", createPurchaseOrderHandler)
	authed.GET("/purchase-orders/:id", getPurchaseOrderHandler)
	authed.POST("/purchase-orders/:id/confirm", confirmPurchaseOrderHandler)
	authed.POST("/purchase-orders/:id/cancel", cancelPurchaseOrderHandler)
	authed.POST("/purchase-orders/:id/bill", billFromPurchaseOrderHandler)
	authed.POST("/goods-receipts", createGoodsReceiptHandler)

	authed.POST("/bills", createBillHandler)
	authed.GET("/bills/:id", getBillHandler)
	authed.POST("/bills/:id/confirm", confirmBillHandler)
	authed.POST("/bills/:id/cancel", cancelBillHandler)
	authed.POST("/bill-payments", createBillPaymentHandler)

	authed.POST("/quotations", createQuotationHandler)
	authed.POST("/quotations/:id/send", quotationTransitionHandler(func(c *gin.Context, id uint) (*models.Quotation, error) {
		return models.SendQuotation(c.Request.Context(), id)
	}))
	authed.POST("/quotations/:id/accept", quotationTransitionHandler(func(c *gin.Context, id uint) (*models.Quotation, error) {
		return models.AcceptQuotation(c.Request.Context(), id)
	}))
	authed.POST("/quotations/:id/reject", quotationTransitionHandler(func(c *gin.Context, id uint) (*models.Quotation, error) {
		return models.RejectQuotation(c.Request.Context(), id)
	}))
	authed.POST("/quotations/:id/expire", quotationTransitionHandler(func(c *gin.Context, id uint) (*models.Quotation, error) {
		return models.MarkQuotationExpired(c.Request.Context(), id)
	}))
	authed.POST("/quotations/:id/cancel", quotationTransitionHandler(func(c *gin.Context, id uint) (*models.Quotation, error) {
		return models.CancelQuotation(c.Request.Context(), id)
	}))
	authed.POST("/quotations/convert", convertQuotationHandler)

	authed.POST("/sales-orders", createSalesOrderHandler)
	authed.POST("/sales-orders/:id/confirm", confirmSalesOrderHandler)
	authed.POST("/sales-orders/:id/fulfill", fulfillSalesOrderHandler)
	authed.POST("/sales-orders/:id/cancel", cancelSalesOrderHandler)
	authed.POST("/sales-orders/:id/invoice", invoiceFromSalesOrderHandler)

	authed.POST("/sales-invoices", createSalesInvoiceHandler)
	authed.GET("/sales-invoices/:id", getSalesInvoiceHandler)
	authed.POST("/sales-invoices/:id/confirm", confirmInvoiceHandler)
	authed.POST("/invoice-payments", createInvoicePaymentHandler)

	authed.POST("/credit-notes", createCreditNoteHandler)
	authed.GET("/credit-notes/:id", getCreditNoteHandler)

	return router
}
