package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/plugtech/internal/models"
)

var ErrUserAlreadyExist = errors.New("user already exist")

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts the user together with its profile row.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User, role string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("email = ?", u.Email).FirstOrCreate(u)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserAlreadyExist
		}
		return tx.Create(&models.Profile{ID: u.ID, Role: role}).Error
	})
}

func (r *GormRepo) ProfileRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var profile models.Profile
	if err := r.DB.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		return "", err
	}
	return profile.Role, nil
}

func (r *GormRepo) SetRole(ctx context.Context, userID uuid.UUID, role string) error {
	return r.DB.WithContext(ctx).Save(&models.Profile{ID: userID, Role: role}).Error
}

func (r *GormRepo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
