package server

import (
	"errors"
	"net/http"
	"strings"

	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/magiclink"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MagicLinkRequest struct {
	Email string  `json:"email"`
	Alias *string `json:"alias,omitempty"`
	// Token is the anti-bot challenge response, not a login credential.
	Token string `json:"token"`
}

// RequestMagicLink issues a login link after captcha and rate checks.
// The response never reveals whether the address has an account.
func (s *Server) RequestMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	ok, err := s.captcha.Verify(ctx, req.Token, c.ClientIP())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !ok {
		AbortWithError(c, newValidationError("token", "invalid", "captcha verification failed"))
		return
	}

	rateKey := strings.ToLower(strings.TrimSpace(req.Email))
	allowed, err := s.limiter.Allow(ctx, rateKey)
	if err != nil {
		s.log.Warn("magic link limiter unavailable", zap.Error(err))
	} else if !allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	if err := s.links.Request(ctx, req.Email, req.Alias); err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordMagicLinkIssued()
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

// VerifyMagicLink consumes the emailed token. This endpoint only ever
// redirects: the browser lands on the confirm page with a session
// cookie, or on the trouble page with no detail about what failed.
func (s *Server) VerifyMagicLink(c *gin.Context) {
	ctx := c.Request.Context()
	value := c.Query("token")

	link, err := s.links.Verify(ctx, value)
	if err != nil {
		s.metrics.RecordMagicLinkVerify(verifyResult(err))
		if !magiclink.IsVerifyError(err) {
			s.log.Error("magic link verify failed", zap.Error(err))
		}
		c.Redirect(http.StatusFound, s.cfg.TroubleURL)
		return
	}

	user, created, err := s.authsvc.ResolveOrCreateUser(ctx, link.Email, link.DisplayName)
	if err != nil {
		s.metrics.RecordMagicLinkVerify(observability.ResultError)
		s.log.Error("resolve user failed", zap.Error(err))
		c.Redirect(http.StatusFound, s.cfg.TroubleURL)
		return
	}

	result, err := s.authsvc.IssueSession(ctx, user.ID)
	if err != nil {
		s.metrics.RecordMagicLinkVerify(observability.ResultError)
		s.log.Error("issue session failed", zap.Error(err))
		c.Redirect(http.StatusFound, s.cfg.TroubleURL)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	s.metrics.RecordMagicLinkVerify(observability.ResultOK)
	s.metrics.RecordSessionIssued()
	s.log.Info("login verified",
		zap.String("user_id", user.ID.String()),
		zap.Bool("created", created))

	c.Redirect(http.StatusFound, s.cfg.ConfirmURL)
}

func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

type MeResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName *string  `json:"display_name,omitempty"`
	Kind        string   `json:"kind"`
	Roles       []string `json:"roles"`
}

func (s *Server) Me(c *gin.Context) {
	principal := CurrentPrincipal(c)
	if principal == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.CurrentUser(c.Request.Context(), principal.SubjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Kind:        user.Kind,
		Roles:       principal.Roles,
	})
}

func verifyResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, authdomain.ErrLinkExpired):
		return observability.ResultExpired
	case errors.Is(err, authdomain.ErrLinkConsumed):
		return observability.ResultConsumed
	case errors.Is(err, authdomain.ErrLinkNotFound):
		return observability.ResultInvalid
	default:
		return observability.ResultError
	}
}
