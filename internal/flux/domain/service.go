package domain

import (
	"context"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Create validates and stores a new flux for the given author.
	Create(ctx context.Context, authorID snowflake.ID, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id snowflake.ID) (*Response, error)
	// List returns the feed newest first, keyed by an opaque cursor.
	List(ctx context.Context, page pagination.Pagination) (*ListResponse, error)
	// Boost bumps the boost counter and returns the new total.
	Boost(ctx context.Context, id snowflake.ID) (int64, error)
}

type CreateRequest struct {
	Body      string        `json:"body"`
	ReplyToID *snowflake.ID `json:"reply_to_id,omitempty"`
}

type Response struct {
	ID        snowflake.ID  `json:"id"`
	AuthorID  snowflake.ID  `json:"author_id"`
	Body      string        `json:"body"`
	ReplyToID *snowflake.ID `json:"reply_to_id,omitempty"`
	Boosts    int64         `json:"boosts"`
	CreatedAt time.Time     `json:"created_at"`
}

type ListResponse struct {
	Fluxes   []Response          `json:"fluxes"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Repository interface {
	Insert(ctx context.Context, flux *Flux) error
	FindByID(ctx context.Context, id snowflake.ID) (*Flux, error)
	// ListBefore returns up to limit fluxes with an ID strictly below
	// beforeID, newest first. A zero beforeID means start from the top.
	ListBefore(ctx context.Context, beforeID snowflake.ID, limit int) ([]Flux, error)
	// IncrementBoosts atomically bumps the counter and returns the new value.
	IncrementBoosts(ctx context.Context, id snowflake.ID) (int64, error)
}
