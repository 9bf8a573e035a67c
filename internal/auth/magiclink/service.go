// Package magiclink implements the single-use emailed login token flow.
package magiclink

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/providers/email"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/token"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

//go:embed templates/magic_link.html
var magicLinkTemplate string

const emailSendTimeout = 15 * time.Second

type Service struct {
	log         *zap.Logger
	links       domain.MagicLinkRepository
	mailer      email.Provider
	clock       clock.Clock
	genID       *snowflake.Node
	ttl         time.Duration
	tokenLength int
	baseURL     string
	tmpl        *template.Template
}

func New(log *zap.Logger, cfg config.Config, links domain.MagicLinkRepository, mailer email.Provider, clk clock.Clock, genID *snowflake.Node) (*Service, error) {
	tmpl, err := template.New("magic_link").Parse(magicLinkTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse magic link template: %w", err)
	}

	length := cfg.MagicLinkTokenLength
	if length < token.MinLength {
		length = token.MinLength
	}

	return &Service{
		log:         log.Named("auth.magiclink"),
		links:       links,
		mailer:      mailer,
		clock:       clk,
		genID:       genID,
		ttl:         cfg.MagicLinkTTL,
		tokenLength: length,
		baseURL:     cfg.MagicLinkBaseURL,
		tmpl:        tmpl,
	}, nil
}

// Request persists a fresh link record and then attempts delivery. The
// record is written before the send so a delivery retry can reuse it;
// a send failure surfaces as ErrEmailSend, never as a token error.
func (s *Service) Request(ctx context.Context, rawEmail string, alias *string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(rawEmail))
	if err != nil {
		return domain.ErrInvalidEmail
	}
	normalized := strings.ToLower(strings.TrimSpace(addr.Address))

	value, err := token.Generate(s.tokenLength)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	link := &domain.MagicLink{
		ID:          s.genID.Generate(),
		Token:       value,
		Email:       normalized,
		DisplayName: alias,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.links.CreateLink(ctx, link); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()
	if err := s.send(sendCtx, normalized, value); err != nil {
		s.log.Error("magic link email send failed",
			zap.String("link_id", link.ID.String()),
			zap.Error(err))
		return domain.ErrEmailSend
	}

	s.log.Info("magic link issued", zap.String("link_id", link.ID.String()))
	return nil
}

// Verify consumes the token exactly once. Every failure path is logged
// precisely server-side; callers collapse them for the client.
func (s *Service) Verify(ctx context.Context, value string) (*domain.MagicLink, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, domain.ErrLinkNotFound
	}

	now := s.clock.Now()
	won, err := s.links.Consume(ctx, value, now)
	if err != nil {
		return nil, err
	}
	if won {
		link, err := s.links.FindByToken(ctx, value)
		if err != nil {
			return nil, err
		}
		return link, nil
	}

	// Lost the conditional update; classify why.
	link, err := s.links.FindByToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if link.Terminal() {
		return nil, domain.ErrLinkConsumed
	}
	if now.After(link.ExpiresAt) {
		// Expiry is itself a terminal transition, to failed.
		if _, err := s.links.MarkFailed(ctx, value, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrLinkExpired
	}
	// Raced a concurrent winner between Consume and FindByToken.
	return nil, domain.ErrLinkConsumed
}

func (s *Service) send(ctx context.Context, to string, value string) error {
	verifyURL := fmt.Sprintf("%s/login/magiclink/verify?token=%s", s.baseURL, url.QueryEscape(value))

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, map[string]any{
		"VerifyURL": verifyURL,
		"TTL":       s.ttl.Round(time.Minute).String(),
	}); err != nil {
		return err
	}

	return s.mailer.Send(ctx, []string{to}, "Your sign-in link", body.String())
}

// IsVerifyError reports whether err belongs to the verify failure set
// that must stay indistinguishable to clients.
func IsVerifyError(err error) bool {
	return errors.Is(err, domain.ErrLinkNotFound) ||
		errors.Is(err, domain.ErrLinkConsumed) ||
		errors.Is(err, domain.ErrLinkExpired)
}
