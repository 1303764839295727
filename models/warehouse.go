package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// Warehouse is a stock location. Quarantine warehouses hold stock that is
// on hand but not available for issue.
type Warehouse struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"type:char(36);index:idx_warehouse_code,unique" json:"business_id"`
	Code         string    `gorm:"size:50;not null;index:idx_warehouse_code,unique" json:"code"`
	Name         string    `gorm:"size:255;not null" json:"name" binding:"required"`
	IsQuarantine *bool     `gorm:"not null;default:false" json:"is_quarantine"`
	Active       *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *Warehouse) IsQuarantineLocation() bool {
	return w.IsQuarantine != nil && *w.IsQuarantine
}

type NewWarehouse struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	IsQuarantine *bool  `json:"is_quarantine"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {
	if err := ValidateModuleEnabled(ctx, ModuleInventory); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if err := utils.ValidateUnique[Warehouse](ctx, "code", input.Code); err != nil {
		return nil, err
	}

	quarantine := input.IsQuarantine
	if quarantine == nil {
		quarantine = utils.NewFalse()
	}
	warehouse := Warehouse{
		BusinessId:   businessId,
		Code:         input.Code,
		Name:         input.Name,
		IsQuarantine: quarantine,
		Active:       utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func GetWarehouse(ctx context.Context, id uint) (*Warehouse, error) {
	return utils.FetchModel[Warehouse](ctx, id)
}

func GetWarehouses(ctx context.Context) ([]Warehouse, error) {
	return utils.FetchAllModels[Warehouse](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("active = ?", true).Order("code")
	})
}
