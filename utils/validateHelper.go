package utils

import (
	"context"
	"fmt"

	"github.com/corefin/erpledger_backend/config"
)

// check if id exists, using ctx's business_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("%s %v: %w", GetTypeName[T](), id, ErrorRecordNotFound)
	}
	return nil
}

// check if ALL ids exist, using ctx's business_id in WHERE, return RecordNotFound error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return fmt.Errorf("%s: %w", GetTypeName[M](), ErrorRecordNotFound)
	}
	return nil
}

// reject a duplicate value in a tenant-scoped unique column
func ValidateUnique[T any](ctx context.Context, column string, value interface{}) error {
	count, err := ResourceCountWhere[T](ctx, column+" = ?", value)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("duplicate %s: %w", column, ErrorConflict)
	}
	return nil
}

// count records, using WHERE business_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, condition string, values ...interface{}) (int64, error) {
	businessId, ok := GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, fmt.Errorf("business id is required: %w", ErrorForbidden)
	}

	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("business_id = ?", businessId).
		Where(condition, values...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
