package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stocked or service item. StandardCost is the unit value used
// for inventory and cost-of-goods postings.
type Product struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"type:char(36);index:idx_product_sku,unique" json:"business_id"`
	SKU           string          `gorm:"size:100;not null;index:idx_product_sku,unique" json:"sku"`
	Name          string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Description   string          `gorm:"size:500" json:"description"`
	UnitOfMeasure string          `gorm:"size:50;default:'Unit'" json:"unit_of_measure"`
	StandardCost  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"standard_cost"`
	SalesPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sales_price"`
	Stocked       *bool           `gorm:"not null;default:true" json:"stocked"`
	Active        *bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	SKU           string          `json:"sku" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	StandardCost  decimal.Decimal `json:"standard_cost"`
	SalesPrice    decimal.Decimal `json:"sales_price"`
	Stocked       *bool           `json:"stocked"`
}

type UpdateProductInput struct {
	ID           uint             `json:"id" binding:"required"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	StandardCost *decimal.Decimal `json:"standard_cost"`
	SalesPrice   *decimal.Decimal `json:"sales_price"`
	Active       *bool            `json:"active"`
}

func (p *Product) IsStocked() bool {
	return p.Stocked != nil && *p.Stocked
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if err := utils.ValidateUnique[Product](ctx, "sku", input.SKU); err != nil {
		return nil, err
	}
	if input.StandardCost.IsNegative() || input.SalesPrice.IsNegative() {
		return nil, fmt.Errorf("cost and price cannot be negative")
	}

	stocked := input.Stocked
	if stocked == nil {
		stocked = utils.NewTrue()
	}
	uom := input.UnitOfMeasure
	if uom == "" {
		uom = "Unit"
	}
	product := Product{
		BusinessId:    businessId,
		SKU:           input.SKU,
		Name:          input.Name,
		Description:   input.Description,
		UnitOfMeasure: uom,
		StandardCost:  input.StandardCost,
		SalesPrice:    input.SalesPrice,
		Stocked:       stocked,
		Active:        utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, input *UpdateProductInput) (*Product, error) {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return nil, err
	}
	product, err := utils.FetchModel[Product](ctx, input.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["Name"] = *input.Name
	}
	if input.Description != nil {
		updates["Description"] = *input.Description
	}
	if input.StandardCost != nil {
		if input.StandardCost.IsNegative() {
			return nil, fmt.Errorf("cost cannot be negative")
		}
		updates["StandardCost"] = *input.StandardCost
	}
	if input.SalesPrice != nil {
		if input.SalesPrice.IsNegative() {
			return nil, fmt.Errorf("price cannot be negative")
		}
		updates["SalesPrice"] = *input.SalesPrice
	}
	if input.Active != nil {
		updates["Active"] = *input.Active
	}
	if len(updates) == 0 {
		return product, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id uint) (*Product, error) {
	return utils.FetchModel[Product](ctx, id)
}

func GetProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return utils.FetchAllModels[Product](ctx, func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			db = db.Where("active = ?", true)
		}
		return db.Order("sku")
	})
}
