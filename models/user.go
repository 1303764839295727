package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corefin/erpledger_backend/config"
	"github.com/corefin/erpledger_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID         string    `gorm:"type:char(36);primary_key" json:"id"`
	BusinessId string    `gorm:"type:char(36);index:idx_user_email,unique" json:"business_id"`
	Email      string    `gorm:"size:255;not null;index:idx_user_email,unique" json:"email"`
	Name       string    `gorm:"size:255" json:"name"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	Active     *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInput struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	BusinessId string `json:"business_id" binding:"required"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required: %w", utils.ErrorForbidden)
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		ID:         uuid.NewString(),
		BusinessId: businessId,
		Email:      input.Email,
		Name:       input.Name,
		Password:   string(hashed),
		Active:     utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns a signed token carrying the user
// and tenant ids.
func Login(ctx context.Context, input *LoginInput) (string, *User, error) {
	db := config.GetDB()
	var user User
	loginCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	err := db.WithContext(loginCtx).
		Where("email = ? AND business_id = ?", input.Email, input.BusinessId).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("invalid credentials: %w", utils.ErrorForbidden)
		}
		return "", nil, err
	}
	if user.Active == nil || !*user.Active {
		return "", nil, fmt.Errorf("user is inactive: %w", utils.ErrorForbidden)
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", utils.ErrorForbidden)
	}
	token, err := utils.JwtGenerate(user.ID, user.BusinessId)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func GetUser(ctx context.Context, id string) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}
