package repository

import (
	"context"
	"errors"
	"time"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) apikeydomain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, key *apikeydomain.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apikeydomain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *repo) FindBySubjectSalt(ctx context.Context, userID snowflake.ID, salt string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ? AND salt = ?", userID, salt).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apikeydomain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, userID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) Revoke(ctx context.Context, id snowflake.ID, revokedAt time.Time) error {
	tx := r.db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return apikeydomain.ErrKeyNotFound
	}
	return nil
}

func (r *repo) TouchLastUsed(ctx context.Context, id snowflake.ID, usedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", usedAt).Error
}
