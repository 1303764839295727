package utils

import (
	"context"
	"fmt"

	"github.com/corefin/erpledger_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db by primary key, no tenant scoping
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id interface{}, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("%s %v: %w", GetTypeName[T](), id, ErrorRecordNotFound)
	}
	return &result, nil
}

// fetch model from db
// (ctx's business_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id interface{}, associations ...string) (*T, error) {
	businessId, ok := GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", ErrorForbidden)
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("%s %v: %w", GetTypeName[T](), id, ErrorRecordNotFound)
	}
	return &result, nil
}

// fetch all models matching an optional scope
// (ctx's business_id is used in query's WHERE)
func FetchAllModels[T any](ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) ([]T, error) {
	businessId, ok := GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", ErrorForbidden)
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, scope := range scopes {
		dbCtx = scope(dbCtx)
	}
	var results []T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	return results, nil
}

func GetTypeName[T any]() string {
	var v T
	return fmt.Sprintf("%T", v)
}
