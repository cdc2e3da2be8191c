package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mastermind064/RT06/models"
)

const tenantKey = "tenant"

// tenant is the request scope of an authenticated user. Every query made on
// its behalf filters by RtID.
type tenant struct {
	RtID       uuid.UUID
	UserID     uuid.UUID
	ResidentID *uuid.UUID
	Role       string
	Username   string
}

func (t tenant) IsAdmin() bool { return t.Role == models.RoleAdmin }

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		userID, claims, err := parseAccessToken(authHeader[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var user models.User
		if err := db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is inactive"})
			return
		}
		if claims.RtID != user.RtID.String() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid tenant"})
			return
		}
		c.Set(tenantKey, tenant{
			RtID:       user.RtID,
			UserID:     user.UserID,
			ResidentID: user.ResidentID,
			Role:       user.Role,
			Username:   user.Username,
		})
		c.Next()
	}
}

// requireRole aborts with 403 unless the caller has one of roles.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := currentTenant(c)
		for _, r := range roles {
			if t.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// currentTenant returns the scope set by jwtAuthMiddleware.
func currentTenant(c *gin.Context) tenant {
	v, _ := c.Get(tenantKey)
	t, _ := v.(tenant)
	return t
}

// corsMiddleware allows the configured SPA origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
