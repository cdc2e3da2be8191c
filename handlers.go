package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

func setupRoutes(r *gin.Engine) {
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Static("/uploads", uploadBaseDir())

	api := r.Group("/api")
	api.POST("/auth/login", loginHandler)
	api.POST("/auth/refresh", refreshHandler)
	api.POST("/auth/revoke", revokeRefreshHandler)
	api.POST("/auth/forgot-password", forgotPasswordHandler)
	api.POST("/auth/reset-password", resetPasswordHandler)
	api.POST("/rts", createRtHandler)

	admin := requireRole(models.RoleAdmin)
	warga := requireRole(models.RoleWarga)

	authGroup := api.Group("")
	authGroup.Use(jwtAuthMiddleware())

	authGroup.POST("/auth/register", admin, registerUserHandler)
	authGroup.GET("/auth/:userId", admin, getUserHandler)
	authGroup.PATCH("/auth/:userId/status", admin, updateUserStatusQueryHandler)

	authGroup.GET("/rts/me", getMyRtHandler)

	authGroup.GET("/residents/me", warga, getMyResidentHandler)
	authGroup.POST("/residents/me", warga, submitMyResidentHandler)
	authGroup.POST("/residents", admin, createResidentHandler)
	authGroup.GET("/residents", admin, listResidentsHandler)
	authGroup.GET("/residents/:residentId", admin, getResidentHandler)
	authGroup.POST("/residents/:residentId/approval", admin, reviewResidentHandler)

	authGroup.GET("/contributions/me", warga, listMyContributionsHandler)
	authGroup.GET("/contributions", listContributionsHandler)
	authGroup.GET("/contributions/:id", getContributionHandler)
	authGroup.GET("/contributions/:id/edit", getContributionHandler)
	authGroup.POST("/contributions", warga, reportContributionHandler)
	authGroup.PUT("/contributions/:id", warga, updateContributionHandler)
	authGroup.POST("/contributions/:id/review", admin, reviewContributionHandler)
	authGroup.POST("/contributions/:id/approve", admin, approveContributionHandler)
	authGroup.POST("/contributions/:id/reject", admin, rejectContributionHandler)

	registerExpenseRoutes(authGroup.Group("/cash/expenses", admin))
	registerExpenseRoutes(authGroup.Group("/cash-expenses", admin))

	authGroup.GET("/cash/summary", cashSummaryHandler)
	authGroup.GET("/cash/summary/months", cashSummaryMonthsHandler)
	authGroup.GET("/cash/summary/monitoring", admin, cashMonitoringHandler)

	authGroup.GET("/users", admin, listUsersHandler)
	authGroup.PATCH("/users/:userId/status/:isActive", admin, updateUserStatusHandler)

	authGroup.GET("/events", admin, listEventsHandler)
}

func registerExpenseRoutes(g *gin.RouterGroup) {
	g.GET("", listExpensesHandler)
	g.GET("/:id", getExpenseHandler)
	g.POST("", createExpenseHandler)
	g.PUT("/:id", updateExpenseHandler)
	g.DELETE("/:id", deleteExpenseHandler)
}

// httpError carries a status code out of a transaction closure.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

func notFound(msg string) error { return &httpError{status: http.StatusNotFound, msg: msg} }

// respondError maps domain errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		c.JSON(he.status, gin.H{"error": he.msg})
	case errors.Is(err, accounts.ErrUsernameTaken), errors.Is(err, accounts.ErrRtExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, accounts.ErrResidentNotInRt), errors.Is(err, accounts.ErrWeakPassword),
		errors.Is(err, accounts.ErrInvalidRole), errors.Is(err, cashbook.ErrInvalidExpense):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, accounts.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, accounts.ErrUserNotFound), errors.Is(err, cashbook.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// inTx runs fn in one database transaction bound to the request context.
func inTx(c *gin.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	ctx := c.Request.Context()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// uuidParam parses a path parameter; malformed ids answer 404 like unknown ones.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// keeps (page-1)*pageSize far from int overflow
	maxPage = 1_000_000
)

// pagination reads page (from 1) and pageSize (1..100).
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	pageSize, _ = strconv.Atoi(c.Query("pageSize"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// pageResult is the {Items, Total} envelope of list endpoints.
type pageResult struct {
	Items any
	Total int64
}
