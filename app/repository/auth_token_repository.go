package repository

import (
	"github.com/dayflow-app/dayflow/app/models"
	"gorm.io/gorm"
)

// authTokenRepository implements the AuthTokenRepository interface
type authTokenRepository struct {
	db *gorm.DB
}

// NewAuthTokenRepository creates a new auth token repository instance
func NewAuthTokenRepository(db *gorm.DB) AuthTokenRepository {
	return &authTokenRepository{db: db}
}

// GetByID retrieves an auth token by its ID
func (r *authTokenRepository) GetByID(id uint) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.First(&token, id).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByUserAndProvider retrieves the token a user holds for one provider
func (r *authTokenRepository) GetByUserAndProvider(userID uint, provider string) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Update persists refreshed token material
func (r *authTokenRepository) Update(token *models.AuthToken) error {
	return r.db.Save(token).Error
}
