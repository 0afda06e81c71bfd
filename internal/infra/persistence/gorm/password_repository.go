package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// GormServerPasswordRepository 是 ServerPasswordRepository 接口的 GORM 实现。
type GormServerPasswordRepository struct {
	db *gorm.DB
}

func NewGormServerPasswordRepository(db *gorm.DB) *GormServerPasswordRepository {
	if db == nil {
		panic("database connection cannot be nil for GormServerPasswordRepository")
	}
	return &GormServerPasswordRepository{db: db}
}

func (r *GormServerPasswordRepository) Create(ctx context.Context, password *domain.ServerPassword) error {
	if err := r.db.WithContext(ctx).Create(password).Error; err != nil {
		return fmt.Errorf("gorm: create server password (id: %s): %w", password.ID, err)
	}
	return nil
}

func (r *GormServerPasswordRepository) FindByID(ctx context.Context, id string) (*domain.ServerPassword, error) {
	var password domain.ServerPassword
	err := r.db.WithContext(ctx).First(&password, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find server password by id: %w", err)
	}
	return &password, nil
}

func (r *GormServerPasswordRepository) ListByServer(ctx context.Context, serverID string) ([]domain.ServerPassword, error) {
	var passwords []domain.ServerPassword
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at DESC").
		Find(&passwords).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list server passwords for server %s: %w", serverID, err)
	}
	return passwords, nil
}

func (r *GormServerPasswordRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.ServerPassword{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("gorm: delete server password %s: %w", id, err)
	}
	return nil
}
