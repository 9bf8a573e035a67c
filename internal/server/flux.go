package server

import (
	"errors"
	"net/http"

	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type CreateFluxRequest struct {
	Body      string  `json:"body"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
}

func (s *Server) CreateFlux(c *gin.Context) {
	principal := CurrentPrincipal(c)
	if principal == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateFluxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	create := fluxdomain.CreateRequest{Body: req.Body}
	if req.ReplyToID != nil {
		replyTo, err := snowflake.ParseString(*req.ReplyToID)
		if err != nil {
			AbortWithError(c, newValidationError("reply_to_id", "invalid", "invalid flux id"))
			return
		}
		create.ReplyToID = &replyTo
	}

	created, err := s.fluxes.Create(c.Request.Context(), principal.SubjectID, create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) GetFlux(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid", "invalid flux id"))
		return
	}

	resp, err := s.fluxes.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListFluxes(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fluxes.List(c.Request.Context(), page)
	if err != nil {
		if errors.Is(err, fluxdomain.ErrBadCursor) {
			AbortWithError(c, newValidationError("page_token", "invalid", "invalid page token"))
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) BoostFlux(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid", "invalid flux id"))
		return
	}

	boosts, err := s.fluxes.Boost(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id.String(), "boosts": boosts})
}
