package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  fluxdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  fluxdomain.Repository
}

func New(p Params) fluxdomain.Service {
	return &Service{
		log:   p.Log.Named("flux.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, authorID snowflake.ID, req fluxdomain.CreateRequest) (*fluxdomain.Response, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fluxdomain.ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > fluxdomain.MaxBodyLength {
		return nil, fluxdomain.ErrBodyTooLong
	}

	if req.ReplyToID != nil {
		if _, err := s.repo.FindByID(ctx, *req.ReplyToID); err != nil {
			if errors.Is(err, fluxdomain.ErrFluxNotFound) {
				return nil, fluxdomain.ErrBadReplyTo
			}
			return nil, err
		}
	}

	flux := &fluxdomain.Flux{
		ID:        s.genID.Generate(),
		AuthorID:  authorID,
		Body:      body,
		ReplyToID: req.ReplyToID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, flux); err != nil {
		return nil, err
	}

	s.log.Info("flux created",
		zap.String("flux_id", flux.ID.String()),
		zap.String("author_id", authorID.String()))
	return toResponse(flux), nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*fluxdomain.Response, error) {
	flux, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(flux), nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) (*fluxdomain.ListResponse, error) {
	var beforeID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, fluxdomain.ErrBadCursor
		}
		beforeID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, fluxdomain.ErrBadCursor
		}
	}

	limit := page.Clamp()
	fluxes, err := s.repo.ListBefore(ctx, beforeID, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &fluxdomain.ListResponse{Fluxes: make([]fluxdomain.Response, 0, limit)}
	if len(fluxes) > limit {
		fluxes = fluxes[:limit]
		resp.PageInfo.HasMore = true

		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID: fluxes[len(fluxes)-1].ID.String(),
		})
		if err != nil {
			return nil, err
		}
		resp.PageInfo.NextPageToken = token
	}

	for i := range fluxes {
		resp.Fluxes = append(resp.Fluxes, *toResponse(&fluxes[i]))
	}
	return resp, nil
}

func (s *Service) Boost(ctx context.Context, id snowflake.ID) (int64, error) {
	return s.repo.IncrementBoosts(ctx, id)
}

func toResponse(f *fluxdomain.Flux) *fluxdomain.Response {
	return &fluxdomain.Response{
		ID:        f.ID,
		AuthorID:  f.AuthorID,
		Body:      f.Body,
		ReplyToID: f.ReplyToID,
		Boosts:    f.Boosts,
		CreatedAt: f.CreatedAt,
	}
}
