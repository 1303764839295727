package models

import (
	"context"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// BusinessModule records which functional modules a tenant has switched on.
// Operations belonging to a disabled module are rejected with Forbidden.
type BusinessModule struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"type:char(36);index:idx_module_business,unique" json:"business_id"`
	Module     string    `gorm:"size:50;not null;index:idx_module_business,unique" json:"module"`
	Enabled    *bool     `gorm:"not null;default:true" json:"enabled"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func enabledModulesCacheKey(businessId string) string {
	return "enabled_modules:" + businessId
}

// ValidateModuleEnabled gates an operation on its module toggle. The enabled
// set is cached per tenant; the cache is best-effort and falls back to the
// database when redis is unavailable.
func ValidateModuleEnabled(ctx context.Context, module string) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}

	var enabled []string
	cacheKey := enabledModulesCacheKey(businessId)
	cached, err := config.GetRedisObject(cacheKey, &enabled)
	if err != nil || !cached {
		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&BusinessModule{}).
			Where("business_id = ? AND enabled = ?", businessId, true).
			Pluck("module", &enabled).Error; err != nil {
			return err
		}
		config.SetRedisObject(cacheKey, enabled, 10*time.Minute)
	}

	for _, m := range enabled {
		if m == module {
			return nil
		}
	}
	return fmt.Errorf("module %s is not enabled: %w", module, utils.ErrorForbidden)
}

// SetModuleEnabled flips a module toggle and invalidates the tenant's cache.
func SetModuleEnabled(ctx context.Context, module string, enabled bool) (*BusinessModule, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	switch module {
	case ModuleAccounting, ModuleInventory, ModulePurchase, ModuleSales:
	default:
		return nil, fmt.Errorf("unknown module %s", module)
	}

	db := config.GetDB()
	var row BusinessModule
	err := db.WithContext(ctx).
		Where(BusinessModule{BusinessId: businessId, Module: module}).
		Assign(map[string]interface{}{"Enabled": enabled}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	config.RemoveRedisKey(enabledModulesCacheKey(businessId))
	return &row, nil
}

func GetEnabledModules(ctx context.Context) ([]BusinessModule, error) {
	return utils.FetchAllModels[BusinessModule](ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("enabled = ?", true).Order("module")
	})
}
