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

// Requisition is an internal purchase request. It carries no prices; those
// are negotiated on the purchase order it converts into.
type Requisition struct {
	ID          uint              `gorm:"primary_key" json:"id"`
	BusinessId  string            `gorm:"type:char(36);index:idx_requisition_number,unique" json:"business_id"`
	Number      string            `gorm:"size:50;not null;index:idx_requisition_number,unique" json:"number"`
	Status      RequisitionStatus `gorm:"type:enum('Draft','Submitted','Approved','Rejected','Cancelled');not null;default:'Draft'" json:"status"`
	Date        time.Time         `gorm:"type:date;not null" json:"date"`
	RequestedBy string            `gorm:"size:255" json:"requested_by"`
	Notes       string            `gorm:"size:500" json:"notes"`
	// ConvertedOrderId pins the purchase order this requisition became.
	// A set value blocks further conversions.
	ConvertedOrderId *uint             `gorm:"index" json:"converted_order_id"`
	Lines            []RequisitionLine `gorm:"foreignKey:RequisitionId" json:"lines"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type RequisitionLine struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"type:char(36);index" json:"business_id"`
	RequisitionId uint            `gorm:"not null;index" json:"requisition_id"`
	ProductId     uint            `gorm:"not null;index" json:"product_id"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewRequisitionLine struct {
	ProductId uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

type NewRequisition struct {
	Date        time.Time            `json:"date" binding:"required"`
	RequestedBy string               `json:"requested_by"`
	Notes       string               `json:"notes"`
	Lines       []NewRequisitionLine `json:"lines" binding:"required,min=1"`
}

func CreateRequisition(ctx context.Context, input *NewRequisition) (*Requisition, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	for i, line := range input.Lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if _, err := utils.FetchModel[Product](ctx, line.ProductId); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()
	number, err := NextDocumentNumber(ctx, tx, DocumentTypeRequisition)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	requisition := Requisition{
		BusinessId:  businessId,
		Number:      number,
		Status:      RequisitionStatusDraft,
		Date:        utils.DateOnly(input.Date),
		RequestedBy: input.RequestedBy,
		Notes:       input.Notes,
	}
	for _, line := range input.Lines {
		requisition.Lines = append(requisition.Lines, RequisitionLine{
			BusinessId: businessId,
			ProductId:  line.ProductId,
			Quantity:   line.Quantity,
		})
	}
	if err := tx.WithContext(ctx).Create(&requisition).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &requisition, nil
}

func transitionRequisition(ctx context.Context, id uint, target RequisitionStatus) (*Requisition, error) {
	if err := ValidateModuleEnabled(ctx, ModulePurchase); err != nil {
		return nil, err
	}
	requisition, err := utils.FetchModel[Requisition](ctx, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !requisition.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("requisition %s cannot go from %s to %s: %w",
			requisition.Number, requisition.Status, target, utils.ErrorInvalidState)
	}
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Requisition{}).
		Where("id = ? AND status = ?", requisition.ID, requisition.Status).
		Update("status", target)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("requisition %s was modified concurrently: %w", requisition.Number, utils.ErrorConflict)
	}
	requisition.Status = target
	return requisition, nil
}

func SubmitRequisition(ctx context.Context, id uint) (*Requisition, error) {
	return transitionRequisition(ctx, id, RequisitionStatusSubmitted)
}

func ApproveRequisition(ctx context.Context, id uint) (*Requisition, error) {
	return transitionRequisition(ctx, id, RequisitionStatusApproved)
}

func RejectRequisition(ctx context.Context, id uint) (*Requisition, error) {
	return transitionRequisition(ctx, id, RequisitionStatusRejected)
}

func CancelRequisition(ctx context.Context, id uint) (*Requisition, error) {
	return transitionRequisition(ctx, id, RequisitionStatusCancelled)
}

func GetRequisition(ctx context.Context, id uint) (*Requisition, error) {
	return utils.FetchModel[Requisition](ctx, id, "Lines")
}

func GetRequisitions(ctx context.Context, status *RequisitionStatus) ([]Requisition, error) {
	return utils.FetchAllModels[Requisition](ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db.Preload("Lines").Order("id DESC")
	})
}
