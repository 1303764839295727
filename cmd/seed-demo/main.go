package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/models"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Seeds a demo tenant with a fiscal year, a couple of products and an owner
// user. Intended for local development.
func main() {
	name := flag.String("name", "Demo Trading Co", "business name")
	email := flag.String("email", "owner@demo.local", "owner email")
	password := flag.String("password", "changeme123", "owner password")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.AutoMigrateModels(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	business, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:  *name,
		Email: *email,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create business: %v\n", err)
		os.Exit(1)
	}
	ctx = utils.SetBusinessIdInContext(ctx, business.ID)

	user, err := models.CreateUser(ctx, &models.NewUser{
		Email:    *email,
		Name:     "Owner",
		Password: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	year := time.Now().Year()
	fiscalYear, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      fmt.Sprintf("FY%d", year),
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create fiscal year: %v\n", err)
		os.Exit(1)
	}

	for _, p := range []models.NewProduct{
		{SKU: "WIDGET-1", Name: "Widget", StandardCost: decimal.NewFromInt(40), SalesPrice: decimal.NewFromInt(65)},
		{SKU: "GADGET-1", Name: "Gadget", StandardCost: decimal.NewFromInt(120), SalesPrice: decimal.NewFromInt(199)},
	} {
		if _, err := models.CreateProduct(ctx, &p); err != nil {
			fmt.Fprintf(os.Stderr, "create product %s: %v\n", p.SKU, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded business %s (%s)\n", business.Name, business.ID)
	fmt.Printf("  owner: %s\n", user.Email)
	fmt.Printf("  fiscal year: %s\n", fiscalYear.Name)
}
