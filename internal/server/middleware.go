package server

import (
	"strings"

	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextPrincipalKey = "auth_principal"

// Identity resolves the request principal. A valid session cookie wins
// over the Authorization header; the header is consulted when the
// cookie is absent or rejected. Resolution failures degrade to
// anonymous rather than abort, so public routes keep working with a
// stale cookie.
func (s *Server) Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal := s.resolvePrincipal(c); principal != nil {
			c.Set(contextPrincipalKey, principal)
		}
		c.Next()
	}
}

func (s *Server) resolvePrincipal(c *gin.Context) *authdomain.Principal {
	ctx := c.Request.Context()

	if raw, ok := s.sessions.ReadToken(c); ok {
		principal, err := s.authsvc.Authenticate(ctx, raw)
		if err == nil {
			return principal
		}
		// An invalid cookie falls through to the api key path.
		s.log.Debug("session token rejected", zap.Error(err))
	}

	raw, ok := bearerToken(c)
	if !ok {
		return nil
	}
	verified, err := s.apikeys.Verify(ctx, raw)
	if err != nil {
		s.metrics.RecordAPIKeyVerify(observability.ResultInvalid)
		s.log.Debug("api key rejected", zap.Error(err))
		return nil
	}
	s.metrics.RecordAPIKeyVerify(observability.ResultOK)

	user, err := s.authsvc.CurrentUser(ctx, verified.UserID)
	if err != nil {
		s.log.Debug("api key subject missing", zap.Error(err))
		return nil
	}
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		s.log.Warn("role lookup failed", zap.Error(err))
		return nil
	}

	alias := ""
	if user.DisplayName != nil {
		alias = *user.DisplayName
	}
	return &authdomain.Principal{SubjectID: user.ID, Alias: alias, Roles: roles}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireRole guards a route. Anonymous requests get 401; authenticated
// principals lacking every listed role get 403.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !principal.HasAnyRole(roles...) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the resolved principal, or nil for anonymous.
func CurrentPrincipal(c *gin.Context) *authdomain.Principal {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil
	}
	principal, ok := value.(*authdomain.Principal)
	if !ok {
		return nil
	}
	return principal
}
