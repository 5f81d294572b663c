package repository

import (
	"github.com/google/uuid"

	"convoy_web/internal/models"
	"convoy_web/internal/storage"
)

type ConvoyRepository interface {
	Create(convoy *models.Convoy) error
	FindByID(id uuid.UUID) (*models.Convoy, error)
	FindByInviteCode(code string) (*models.Convoy, error)
	FindByUserID(userID uint) ([]models.Convoy, error)
	AddMember(member *models.ConvoyMember) error
	HasMember(convoyID uuid.UUID, userID uint) (bool, error)
}

type convoyRepository struct {
	db *storage.PostgresDB
}

func NewConvoyRepository(db *storage.PostgresDB) ConvoyRepository {
	return &convoyRepository{db: db}
}

func (r *convoyRepository) Create(convoy *models.Convoy) error {
	return r.db.Create(convoy).Error
}

func (r *convoyRepository) FindByID(id uuid.UUID) (*models.Convoy, error) {
	var convoy models.Convoy
	err := r.db.Preload("Members").First(&convoy, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &convoy, nil
}

func (r *convoyRepository) FindByInviteCode(code string) (*models.Convoy, error) {
	var convoy models.Convoy
	err := r.db.Preload("Members").Where("invite_code = ?", code).First(&convoy).Error
	if err != nil {
		return nil, err
	}
	return &convoy, nil
}

// FindByUserID 查詢用戶參加的所有車隊
func (r *convoyRepository) FindByUserID(userID uint) ([]models.Convoy, error) {
	var convoys []models.Convoy
	err := r.db.Preload("Members").
		Joins("JOIN convoy_members ON convoy_members.convoy_id = convoys.id").
		Where("convoy_members.user_id = ? AND convoy_members.deleted_at IS NULL", userID).
		Order("convoys.created_at DESC").
		Find(&convoys).Error
	return convoys, err
}

func (r *convoyRepository) AddMember(member *models.ConvoyMember) error {
	return r.db.Create(member).Error
}

func (r *convoyRepository) HasMember(convoyID uuid.UUID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ConvoyMember{}).
		Where("convoy_id = ? AND user_id = ?", convoyID, userID).
		Count(&count).Error
	return count > 0, err
}
