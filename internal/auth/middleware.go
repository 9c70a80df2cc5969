// Package auth verifies session tokens and provisions a profile for every
// identity on its first authenticated request.
package auth

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
)

const profileKey = "profile"

// Authenticator resolves the caller of a request
type Authenticator struct {
	signer      *Signer
	profiles    *db.ProfileRepository
	cookieName  string
	adminEmails map[string]bool
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(cfg *config.AuthConfig, signer *Signer, profiles *db.ProfileRepository) *Authenticator {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &Authenticator{
		signer:      signer,
		profiles:    profiles,
		cookieName:  cfg.CookieName,
		adminEmails: admins,
	}
}

func (a *Authenticator) token(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if a.cookieName != "" {
		if cookie, err := c.Cookie(a.cookieName); err == nil {
			return cookie
		}
	}
	return ""
}

// Authenticate identifies the caller when a valid session is present and
// lets anonymous requests through.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := a.token(c)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := a.signer.ValidateToken(raw)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug("Ignoring invalid session", zap.Error(err))
			c.Next()
			return
		}

		profile, err := a.Provision(c.Request.Context(), claims)
		if err != nil {
			logging.Ctx(c.Request.Context()).Error("Profile provisioning failed",
				zap.String("user_id", claims.Subject), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}

		c.Set(logging.UserIDKey, profile.ID)
		c.Set(profileKey, profile)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := Profile(c)
		if profile == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !profile.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// Provision returns the profile for claims, creating it on first sight
func (a *Authenticator) Provision(ctx context.Context, claims *Claims) (*models.Profile, error) {
	email := strings.TrimSpace(claims.Email)
	isAdmin := a.adminEmails[strings.ToLower(email)]

	existing, err := a.profiles.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if isAdmin && !existing.IsAdmin() {
			if _, err := a.profiles.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return nil, err
			}
			existing.Role = models.RoleAdmin
		}
		return existing, nil
	}

	profile := &models.Profile{
		ID:        claims.Subject,
		FullName:  nullString(claims.UserMetadata.FullName),
		Handle:    nullString(claims.UserMetadata.UserName),
		AvatarURL: nullString(claims.UserMetadata.AvatarURL),
		Email:     email,
		Role:      models.RoleUser,
	}
	if isAdmin {
		profile.Role = models.RoleAdmin
	}

	created, err := a.profiles.Ensure(ctx, profile)
	if err != nil {
		return nil, err
	}
	if created == nil && profile.Handle.Valid {
		// The handle belongs to someone else; keep the profile without it.
		profile.Handle = sql.NullString{}
		created, err = a.profiles.Ensure(ctx, profile)
		if err != nil {
			return nil, err
		}
	}
	if created == nil {
		return nil, sql.ErrNoRows
	}

	logging.Ctx(ctx).Info("Profile provisioned",
		zap.String("user_id", created.ID),
		zap.String("role", created.Role))
	return created, nil
}

// UserID returns the authenticated caller's id, or "" when anonymous
func UserID(c *gin.Context) string {
	return c.GetString(logging.UserIDKey)
}

// Profile returns the authenticated caller's profile, or nil
func Profile(c *gin.Context) *models.Profile {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
