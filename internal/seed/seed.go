// Package seed creates bootstrap subjects for fresh deployments.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EnsureBootstrapSubjects creates the configured admin account and
// system bot if they do not exist yet. Idempotent across restarts.
func EnsureBootstrapSubjects(db *gorm.DB, cfg config.Config, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	botEmail := strings.ToLower(strings.TrimSpace(cfg.BootstrapBotEmail))
	if adminEmail == "" && botEmail == "" {
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if adminEmail != "" {
			if err := ensureUserTx(ctx, tx, node, adminEmail, authdomain.KindHuman,
				authdomain.RoleUser, authdomain.RoleMember, authdomain.RoleAdmin); err != nil {
				return err
			}
		}
		if botEmail != "" {
			if err := ensureUserTx(ctx, tx, node, botEmail, authdomain.KindSystem,
				authdomain.RoleUser); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, email, kind string, roles ...string) error {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		user = authdomain.User{
			ID:        node.Generate(),
			Email:     email,
			Kind:      kind,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	for _, role := range roles {
		var existing authdomain.RoleGrant
		err := tx.WithContext(ctx).
			Where("user_id = ? AND role = ?", user.ID, role).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			grant := authdomain.RoleGrant{
				ID:        node.Generate(),
				UserID:    user.ID,
				Role:      role,
				GrantedAt: time.Now().UTC(),
			}
			if err := tx.WithContext(ctx).Create(&grant).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
