package repository

import (
	"context"
	"errors"

	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) fluxdomain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, flux *fluxdomain.Flux) error {
	return r.db.WithContext(ctx).Create(flux).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*fluxdomain.Flux, error) {
	var flux fluxdomain.Flux
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&flux).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fluxdomain.ErrFluxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &flux, nil
}

func (r *repo) ListBefore(ctx context.Context, beforeID snowflake.ID, limit int) ([]fluxdomain.Flux, error) {
	tx := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if beforeID != 0 {
		tx = tx.Where("id < ?", beforeID)
	}

	var fluxes []fluxdomain.Flux
	if err := tx.Find(&fluxes).Error; err != nil {
		return nil, err
	}
	return fluxes, nil
}

func (r *repo) IncrementBoosts(ctx context.Context, id snowflake.ID) (int64, error) {
	var boosts int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&fluxdomain.Flux{}).
			Where("id = ?", id).
			Update("boosts", gorm.Expr("boosts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fluxdomain.ErrFluxNotFound
		}
		return tx.Model(&fluxdomain.Flux{}).
			Where("id = ?", id).
			Pluck("boosts", &boosts).Error
	})
	if err != nil {
		return 0, err
	}
	return boosts, nil
}
