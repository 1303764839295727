package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/google/uuid"
)

// Business is the tenant root. Every other row in the system carries its id;
// no row is ever shared across tenants.
type Business struct {
	ID       string `gorm:"type:char(36);primary_key" json:"id"`
	Name     string `gorm:"size:255;not null" json:"name" binding:"required"`
	Email    string `gorm:"size:255" json:"email"`
	Timezone string `gorm:"size:100;default:'UTC'" json:"timezone"`

	// Posting policy knobs. Explicit configuration, never silent behavior.
	AllowNegativeStock       *bool                    `gorm:"not null;default:false" json:"allow_negative_stock"`
	PurchaseStockRecognition PurchaseStockRecognition `gorm:"type:enum('Receipt','Bill');default:'Receipt'" json:"purchase_stock_recognition"`
	AutoPostGoodsReceipt     *bool                    `gorm:"not null;default:true" json:"auto_post_goods_receipt"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type UpdateBusinessSettingsInput struct {
	AllowNegativeStock       *bool                     `json:"allow_negative_stock"`
	PurchaseStockRecognition *PurchaseStockRecognition `json:"purchase_stock_recognition"`
	AutoPostGoodsReceipt     *bool                     `json:"auto_post_goods_receipt"`
}

// CreateBusiness provisions a tenant together with its defaults: starter
// chart of accounts, modules, warehouse and number series, all in one
// transaction.
func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if input.Name == "" {
		return nil, errors.New("business name is required")
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	business := Business{
		ID:                       uuid.NewString(),
		Name:                     input.Name,
		Email:                    input.Email,
		Timezone:                 timezone,
		AllowNegativeStock:       utils.NewFalse(),
		PurchaseStockRecognition: PurchaseStockRecognitionReceipt,
		AutoPostGoodsReceipt:     utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&business).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := CreateDefaultModules(tx, ctx, business.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := CreateDefaultAccounts(tx, ctx, business.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := CreateDefaultWarehouse(tx, ctx, business.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := CreateDefaultNumberSeries(tx, ctx, business.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, fmt.Errorf("business %s: %w", businessId, utils.ErrorRecordNotFound)
	}
	return &business, nil
}

func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	return GetBusinessById(ctx, businessId)
}

// UpdateBusinessSettings toggles the tenant's posting policy knobs.
func UpdateBusinessSettings(ctx context.Context, input *UpdateBusinessSettingsInput) (*Business, error) {
	business, err := GetBusiness(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.AllowNegativeStock != nil {
		updates["AllowNegativeStock"] = *input.AllowNegativeStock
	}
	if input.PurchaseStockRecognition != nil {
		switch *input.PurchaseStockRecognition {
		case PurchaseStockRecognitionReceipt, PurchaseStockRecognitionBill:
		default:
			return nil, errors.New("invalid purchase stock recognition")
		}
		updates["PurchaseStockRecognition"] = *input.PurchaseStockRecognition
	}
	if input.AutoPostGoodsReceipt != nil {
		updates["AutoPostGoodsReceipt"] = *input.AutoPostGoodsReceipt
	}
	if len(updates) == 0 {
		return business, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(business).Updates(updates).Error; err != nil {
		return nil, err
	}
	return business, nil
}
