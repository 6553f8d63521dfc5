package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"hostelhub.backend/internal/interfaces/http/handlers"
	"hostelhub.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	authHandler         *handlers.AuthHandler
	verificationHandler *handlers.VerificationHandler
	adminHandler        *handlers.AdminHandler
	authMiddleware      gin.HandlerFunc
	activeMiddleware    gin.HandlerFunc
	idempotency         gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", d.authHandler.Register)
			auth.POST("/login", d.authHandler.Login)
			auth.POST("/refresh", d.authHandler.RefreshToken)
			auth.GET("/me", d.authMiddleware, d.authHandler.GetMe)
		}

		// Reading one's own status stays open to inactive accounts so they
		// can see why they are blocked; submitting requires ACTIVE.
		verification := v1.Group("/verification")
		verification.Use(d.authMiddleware)
		{
			verification.GET("", d.verificationHandler.GetStatus)
			verification.POST("", d.activeMiddleware, d.idempotency, d.verificationHandler.Submit)
			verification.POST("/upload", d.activeMiddleware, d.idempotency, d.verificationHandler.Upload)
		}

		admin := v1.Group("/admin")
		admin.Use(d.authMiddleware, middleware.RequireAdmin(), d.activeMiddleware)
		{
			admin.GET("/verifications/pending", d.adminHandler.ListPending)
			admin.POST("/verifications/:userId/decision", d.idempotency, d.adminHandler.Decide)

			admin.GET("/users", d.adminHandler.ListUsers)
			admin.GET("/users/:id", d.adminHandler.GetUser)
			admin.PUT("/users/:id/status", d.adminHandler.UpdateStatus)
			admin.PUT("/users/:id/role", d.adminHandler.UpdateRole)
			admin.GET("/users/:id/roles", d.adminHandler.RoleHistory)
			admin.DELETE("/users/:id", d.adminHandler.DeleteUser)
		}
	}
}

func registerHealthRoute(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Health)
}

func registerMetricsRoute(r *gin.Engine, h http.Handler) {
	r.GET("/metrics", gin.WrapH(h))
}

// applyCORSMiddleware echoes the request origin when it is allowed. A single
// "*" entry allows any origin.
func applyCORSMiddleware(r *gin.Engine, allowedOrigins []string) {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[strings.TrimRight(origin, "/")]; ok || allowAll {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
