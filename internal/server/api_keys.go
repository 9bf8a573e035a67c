package server

import (
	"net/http"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type CreateAPIKeyRequest struct {
	UserID        string `json:"user_id"`
	Description   string `json:"description"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// CreateAPIKey mints a key for a system subject. The raw key appears in
// this response and nowhere else.
func (s *Server) CreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := snowflake.ParseString(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid", "invalid user id"))
		return
	}

	resp, err := s.apikeys.Generate(c.Request.Context(), apikeydomain.CreateRequest{
		UserID:        userID,
		Description:   req.Description,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListAPIKeys(c *gin.Context) {
	raw := c.Query("user_id")
	if raw == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}
	userID, err := snowflake.ParseString(raw)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid", "invalid user id"))
		return
	}

	keys, err := s.apikeys.List(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	keyID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid", "invalid key id"))
		return
	}

	if err := s.apikeys.Revoke(c.Request.Context(), keyID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
