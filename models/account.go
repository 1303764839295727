package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"gorm.io/gorm"
)

// System default codes identify the accounts document postings resolve
// automatically. One per tenant, seeded at provisioning.
const (
	SystemAccountCash           = "CSH"
	SystemAccountReceivable     = "AR"
	SystemAccountPayable        = "AP"
	SystemAccountInventory      = "INV"
	SystemAccountSales          = "SAL"
	SystemAccountCOGS           = "COG"
	SystemAccountInputTax       = "ITX"
	SystemAccountOutputTax      = "OTX"
	SystemAccountOpeningBalance = "OBE"
)

// Account is a node in the tenant's chart of accounts. The tree is kept
// acyclic; a child inherits nothing from its parent except reporting rollup.
type Account struct {
	ID                uint            `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"type:char(36);index:idx_account_code,unique" json:"business_id"`
	Code              string          `gorm:"size:50;not null;index:idx_account_code,unique" json:"code"`
	Name              string          `gorm:"size:255;not null" json:"name" binding:"required"`
	MainType          AccountMainType `gorm:"type:enum('Asset','Liability','Equity','Income','Expense');not null" json:"main_type" binding:"required"`
	ParentAccountId   *uint           `gorm:"index" json:"parent_account_id"`
	SystemDefaultCode string          `gorm:"size:10" json:"system_default_code"`
	Description       string          `gorm:"size:500" json:"description"`
	Active            *bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Code            string          `json:"code" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	MainType        AccountMainType `json:"main_type" binding:"required"`
	ParentAccountId *uint           `json:"parent_account_id"`
	Description     string          `json:"description"`
}

type UpdateAccountInput struct {
	ID              uint    `json:"id" binding:"required"`
	Name            *string `json:"name"`
	ParentAccountId *uint   `json:"parent_account_id"`
	Description     *string `json:"description"`
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if !input.MainType.IsValid() {
		return nil, errors.New("invalid account main type")
	}
	if err := utils.ValidateUnique[Account](ctx, "code", input.Code); err != nil {
		return nil, err
	}
	if input.ParentAccountId != nil {
		parent, err := utils.FetchModel[Account](ctx, *input.ParentAccountId)
		if err != nil {
			return nil, err
		}
		if parent.MainType != input.MainType {
			return nil, errors.New("parent account must share the same main type")
		}
	}

	account := Account{
		BusinessId:      businessId,
		Code:            input.Code,
		Name:            input.Name,
		MainType:        input.MainType,
		ParentAccountId: input.ParentAccountId,
		Description:     input.Description,
		Active:          utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount edits name, description or reparenting. MainType and Code are
// immutable once created; reparenting is rejected when it would close a cycle.
func UpdateAccount(ctx context.Context, input *UpdateAccountInput) (*Account, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, input.ID)
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
	if input.ParentAccountId != nil {
		if *input.ParentAccountId == account.ID {
			return nil, errors.New("account cannot be its own parent")
		}
		parent, err := utils.FetchModel[Account](ctx, *input.ParentAccountId)
		if err != nil {
			return nil, err
		}
		if parent.MainType != account.MainType {
			return nil, errors.New("parent account must share the same main type")
		}
		if err := validateNoAccountCycle(ctx, account.ID, parent); err != nil {
			return nil, err
		}
		updates["ParentAccountId"] = *input.ParentAccountId
	}
	if len(updates) == 0 {
		return account, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// validateNoAccountCycle walks up from the proposed parent; hitting the
// account being reparented means the move would create a cycle.
func validateNoAccountCycle(ctx context.Context, accountId uint, parent *Account) error {
	current := parent
	for {
		if current.ID == accountId {
			return errors.New("reparenting would create a cycle in the account tree")
		}
		if current.ParentAccountId == nil {
			return nil
		}
		next, err := utils.FetchModel[Account](ctx, *current.ParentAccountId)
		if err != nil {
			return err
		}
		current = next
	}
}

// DeactivateAccount hides the account from new postings. Existing journal
// lines keep referencing it.
func DeactivateAccount(ctx context.Context, id uint) (*Account, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Update("Active", false).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func ActivateAccount(ctx context.Context, id uint) (*Account, error) {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Update("Active", true).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes an account that has never been posted to. Accounts
// referenced by journal lines or children, and system accounts, cannot be
// deleted; deactivate instead.
func DeleteAccount(ctx context.Context, id uint) error {
	if err := ValidateModuleEnabled(ctx, ModuleAccounting); err != nil {
		return err
	}
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return err
	}
	if account.SystemDefaultCode != "" {
		return fmt.Errorf("system account cannot be deleted: %w", utils.ErrorConflict)
	}

	lineCount, err := utils.ResourceCountWhere[JournalLine](ctx, "account_id = ?", id)
	if err != nil {
		return err
	}
	if lineCount > 0 {
		return fmt.Errorf("account has journal lines: %w", utils.ErrorConflict)
	}
	childCount, err := utils.ResourceCountWhere[Account](ctx, "parent_account_id = ?", id)
	if err != nil {
		return err
	}
	if childCount > 0 {
		return fmt.Errorf("account has child accounts: %w", utils.ErrorConflict)
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(account).Error
}

func GetAccount(ctx context.Context, id uint) (*Account, error) {
	return utils.FetchModel[Account](ctx, id)
}

func GetAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	return utils.FetchAllModels[Account](ctx, func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			db = db.Where("active = ?", true)
		}
		return db.Order("code")
	})
}

// GetSystemAccount resolves one of the seeded posting accounts for the
// current tenant.
func GetSystemAccount(ctx context.Context, tx *gorm.DB, systemCode string) (*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	var account Account
	err := tx.WithContext(ctx).
		Where("business_id = ? AND system_default_code = ?", businessId, systemCode).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("system account %s: %w", systemCode, utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &account, nil
}
