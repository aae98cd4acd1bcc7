// Package router binds HTTP handlers to the versioned API surface.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/handler"
	"github.com/noah-isme/mindsetu-api/internal/middleware"
	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/service"
)

// Handlers groups the HTTP handlers served under the API prefix. Nil handlers leave
// their routes unregistered.
type Handlers struct {
	Auth        *handler.AuthHandler
	Roster      *handler.UserHandler
	Journal     *handler.JournalHandler
	Assignments *handler.AssignmentHandler
	Analytics   *handler.AnalyticsHandler
	Insights    *handler.InsightHandler
	Chat        *handler.ChatHandler
	Dashboard   *handler.DashboardHandler
	Reports     *handler.ReportHandler
}

// Config carries the dependencies shared by route middleware.
type Config struct {
	Prefix          string
	Tokens          middleware.TokenValidator
	Audit           middleware.AuditRecorder
	Metrics         *service.MetricsService
	Logger          *zap.Logger
	FirebaseEnabled bool
}

var (
	staff      = []models.UserRole{models.RoleAdmin, models.RoleTeacher}
	rosterRead = []models.UserRole{models.RoleAdmin, models.RoleTeacher, models.RoleSuperAdmin}
)

// Register mounts every API route on r.
func Register(r *gin.Engine, h Handlers, cfg Config) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	api := r.Group(cfg.Prefix)
	api.Use(middleware.Metrics(cfg.Metrics), middleware.WithResponseMeta())

	authn := middleware.JWT(cfg.Tokens)

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		if cfg.FirebaseEnabled {
			auth.POST("/firebase", h.Auth.Firebase)
		}
		auth.POST("/logout", authn, h.Auth.Logout)
		auth.POST("/change-password", authn, h.Auth.ChangePassword)
		auth.GET("/me", authn, h.Auth.Me)
	}

	if h.Roster != nil {
		roster := api.Group("/roster", authn)
		roster.GET("", middleware.RequireRoles(rosterRead...), h.Roster.List)
		roster.POST("/students", middleware.RequireRoles(staff...), h.Roster.PreRegisterStudent)
		roster.POST("/teachers", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Roster.PreRegisterTeacher)
		roster.PATCH("/:id/deactivate", middleware.RequireRoles(models.RoleAdmin), h.Roster.Deactivate)
	}

	if h.Journal != nil {
		journal := api.Group("/journal", authn)
		journal.GET("", h.Journal.List)
		journal.POST("", h.Journal.Create)
		journal.PUT("/:id", h.Journal.Update)
		journal.DELETE("/:id", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionJournalDelete, "journal_entry"), h.Journal.Delete)
		journal.POST("/:id/reflection", h.Journal.Reflect)
	}

	if h.Assignments != nil {
		assignments := api.Group("/assignments", authn)
		assignments.GET("", h.Assignments.List)
		assignments.POST("", middleware.RequireRoles(staff...), h.Assignments.Create)
		assignments.GET("/mine", middleware.RequireRoles(models.RoleStudent), h.Assignments.Mine)
		assignments.GET("/alerts", middleware.RequireRoles(models.RoleStudent), h.Assignments.Alerts)
		assignments.POST("/:id/submit", middleware.RequireRoles(models.RoleStudent), h.Assignments.Submit)
	}

	if h.Analytics != nil {
		analytics := api.Group("/analytics", authn, middleware.RequireRoles(staff...))
		analytics.GET("/attitude", h.Analytics.Attitude)
		analytics.GET("/assignments", h.Analytics.Assignments)
	}

	if h.Insights != nil {
		insights := api.Group("/insights", authn, middleware.RequireRoles(models.RoleAdmin))
		insights.GET("/academic", h.Insights.Academic)
		insights.GET("/dropout-risk", h.Insights.DropoutRisk)
	}

	if h.Chat != nil {
		chat := api.Group("/chat", authn)
		chat.POST("/messages", h.Chat.Send)
		chat.GET("/history", h.Chat.History)
		chat.DELETE("/history", h.Chat.Reset)
		api.GET("/resources/emergency", h.Chat.Emergency)
	}

	if h.Dashboard != nil {
		api.GET("/dashboard", authn, h.Dashboard.Get)
	}

	if h.Reports != nil {
		reports := api.Group("/reports", authn, middleware.RequireRoles(models.RoleAdmin))
		reports.POST("", middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionReportRequest, "report"), h.Reports.GenerateReport)
		reports.GET("", h.Reports.ListReports)
		reports.GET("/:id", h.Reports.ReportStatus)
		api.GET("/export/:token", h.Reports.DownloadReport)
	}
}
