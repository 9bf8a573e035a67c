package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/repository"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	authrepository "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/repository"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

type fixture struct {
	svc   apikeydomain.Service
	users authdomain.Repository
	clk   *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&authdomain.User{}, &apikeydomain.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	users, _ := authrepository.New(conn, node)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc, err := New(Params{
		Cfg:   config.Config{APIKeySecret: "test-api-key-secret-0123456789ab"},
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(conn),
		Users: users,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{svc: svc, users: users, clk: clk, node: node}
}

func (f *fixture) createUser(t *testing.T, kind string) *authdomain.User {
	t.Helper()
	user := &authdomain.User{
		ID:    f.node.Generate(),
		Email: strings.ToLower(kind) + "-" + f.node.Generate().String() + "@example.com",
		Kind:  kind,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestGenerateAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bot := f.createUser(t, authdomain.KindSystem)

	resp, err := f.svc.Generate(ctx, apikeydomain.CreateRequest{UserID: bot.ID, Description: "ingest bot"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if parts := strings.Split(resp.RawKey, "."); len(parts) != 3 {
		t.Fatalf("expected 3-part composite, got %q", resp.RawKey)
	}

	verified, err := f.svc.Verify(ctx, resp.RawKey)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.UserID != bot.ID {
		t.Fatalf("expected subject %v, got %v", bot.ID, verified.UserID)
	}

	keys, err := f.svc.List(ctx, bot.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].LastUsedAt == nil {
		t.Fatal("expected last_used_at to be touched")
	}
}

func TestGenerateHumanForbidden(t *testing.T) {
	f := newFixture(t)
	human := f.createUser(t, authdomain.KindHuman)

	_, err := f.svc.Generate(context.Background(), apikeydomain.CreateRequest{UserID: human.ID})
	if !errors.Is(err, authdomain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "a.b", "a.b.c.d", "not-a-snowflake.salt.tag"} {
		if _, err := f.svc.Verify(context.Background(), raw); !errors.Is(err, apikeydomain.ErrMalformedKey) {
			t.Fatalf("key %q: expected ErrMalformedKey, got %v", raw, err)
		}
	}
}

func TestVerifyTamperedTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bot := f.createUser(t, authdomain.KindSystem)

	resp, err := f.svc.Generate(ctx, apikeydomain.CreateRequest{UserID: bot.ID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tampered := resp.RawKey[:len(resp.RawKey)-1]
	if strings.HasSuffix(resp.RawKey, "0") {
		tampered += "1"
	} else {
		tampered += "0"
	}

	if _, err := f.svc.Verify(ctx, tampered); !errors.Is(err, apikeydomain.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestVerifyRevokedDespiteCorrectTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bot := f.createUser(t, authdomain.KindSystem)

	resp, err := f.svc.Generate(ctx, apikeydomain.CreateRequest{UserID: bot.ID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := f.svc.Revoke(ctx, resp.KeyID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := f.svc.Verify(ctx, resp.RawKey); !errors.Is(err, apikeydomain.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for revoked key, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bot := f.createUser(t, authdomain.KindSystem)

	resp, err := f.svc.Generate(ctx, apikeydomain.CreateRequest{UserID: bot.ID, ExpiresInDays: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	f.clk.Advance(48 * time.Hour)

	if _, err := f.svc.Verify(ctx, resp.RawKey); !errors.Is(err, apikeydomain.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for expired key, got %v", err)
	}
}

func TestRevokeUnknownKey(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Revoke(context.Background(), f.node.Generate()); !errors.Is(err, apikeydomain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}
