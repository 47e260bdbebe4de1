// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/remind/internal/handlers"
	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/services/auth"
	"codeberg.org/oliverandrich/remind/internal/services/ratelimit"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"codeberg.org/oliverandrich/remind/internal/services/settings"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/labstack/echo/v4"
)

// routeDeps holds dependencies needed to set up routes.
type routeDeps struct {
	store         store.Store
	version       string
	verifier      middleware.TokenVerifier
	auth          *auth.Service
	reminders     *reminders.Service
	settings      *settings.Service
	authLimiter   *ratelimit.Store
	verifyLimiter *ratelimit.Store
}

func setupRoutes(e *echo.Echo, d routeDeps) {
	h := handlers.New(d.store, d.version)
	ah := handlers.NewAuth(d.auth)
	rh := handlers.NewReminders(d.reminders)
	sh := handlers.NewSettings(d.settings)
	xh := handlers.NewExport(d.store, d.reminders, d.settings)

	authLimit := middleware.RateLimit(d.authLimiter, middleware.AuthLimitMessage)
	verifyLimit := middleware.RateLimit(d.verifyLimiter, middleware.VerifyLimitMessage)
	requireToken := middleware.RequireToken(d.verifier)

	e.GET("/", h.Index)
	e.GET("/health", h.Health)

	a := e.Group("/auth")
	a.POST("/signup", ah.Signup, authLimit)
	a.POST("/login", ah.Login, authLimit)
	a.POST("/verify-email", ah.VerifyEmail, verifyLimit)
	a.POST("/resend-verification", ah.ResendVerification, verifyLimit, requireToken)
	a.POST("/logout", ah.Logout, requireToken)
	a.POST("/change-password", ah.ChangePassword, requireToken)
	a.DELETE("/delete-account", ah.DeleteAccount, requireToken)

	r := e.Group("/reminders", requireToken)
	r.GET("", rh.List)
	r.POST("", rh.Create)
	r.POST("/batch-archive", rh.BatchArchive)
	r.POST("/batch-delete", rh.BatchDelete)
	r.PATCH("/:id", rh.Update)
	r.DELETE("/:id", rh.Delete)
	r.POST("/:id/archive", rh.Archive)

	e.GET("/settings", sh.Get, requireToken)
	e.PATCH("/settings", sh.Update, requireToken)
	e.GET("/export", xh.Export, requireToken)
}
