package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/handler"
	"github.com/edupulse/learning-center-api/internal/middleware"
	"github.com/edupulse/learning-center-api/internal/models"
	"github.com/edupulse/learning-center-api/internal/service"
	"github.com/edupulse/learning-center-api/pkg/config"
	"github.com/edupulse/learning-center-api/pkg/logger"
	corsmiddleware "github.com/edupulse/learning-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupulse/learning-center-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Students    *handler.StudentHandler
	Teachers    *handler.TeacherHandler
	Groups      *handler.GroupHandler
	Lessons     *handler.LessonHandler
	Homeworks   *handler.HomeworkHandler
	Ratings     *handler.RatingHandler
	Leaderboard *handler.LeaderboardHandler
	Metrics     *handler.MetricsHandler
}

// New assembles the gin engine: global middleware, operational endpoints
// and the versioned API surface with per-route RBAC gates.
func New(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.Use(middleware.WithResponseMeta())

	authed := protected.Group("/auth")
	{
		authed.POST("/logout", h.Auth.Logout)
		authed.GET("/me", h.Auth.Me)
		authed.POST("/change-password", h.Auth.ChangePassword)
	}

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	students := protected.Group("/students")
	{
		students.GET("/me", studentOnly, h.Students.Me)
		students.GET("", staffOnly, h.Students.List)
		students.GET("/:id", staffOnly, h.Students.Get)
		students.POST("", adminOnly, h.Students.Create)
		students.PUT("/:id", adminOnly, h.Students.Update)
		students.DELETE("/:id", adminOnly, h.Students.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", staffOnly, h.Teachers.List)
		teachers.GET("/:id", staffOnly, h.Teachers.Get)
		teachers.POST("", adminOnly, h.Teachers.Create)
		teachers.PUT("/:id", adminOnly, h.Teachers.Update)
		teachers.DELETE("/:id", adminOnly, h.Teachers.Delete)
	}

	groups := protected.Group("/groups")
	{
		groups.GET("", staffOnly, h.Groups.List)
		groups.GET("/:id", staffOnly, h.Groups.Get)
		groups.GET("/:id/students", staffOnly, h.Groups.ListStudents)
		groups.POST("", adminOnly, h.Groups.Create)
		groups.PUT("/:id", adminOnly, h.Groups.Update)
		groups.DELETE("/:id", adminOnly, h.Groups.Delete)
		groups.POST("/:id/students", adminOnly, h.Groups.AssignStudent)
		groups.DELETE("/:id/students/:studentID", adminOnly, h.Groups.RemoveStudent)
		groups.PUT("/:id/teacher", adminOnly, h.Groups.SetTeacher)
	}

	lessons := protected.Group("/lessons")
	{
		lessons.GET("", h.Lessons.List)
		lessons.GET("/:id", h.Lessons.Get)
		lessons.GET("/:id/submissions", staffOnly, h.Lessons.Submissions)
		lessons.POST("", staffOnly, h.Lessons.Create)
		lessons.PUT("/:id", staffOnly, h.Lessons.Update)
		lessons.DELETE("/:id", adminOnly, h.Lessons.Delete)
	}

	homeworks := protected.Group("/homeworks")
	{
		homeworks.POST("", studentOnly, h.Homeworks.Submit)
		homeworks.GET("/mine", studentOnly, h.Homeworks.Mine)
		homeworks.GET("", h.Homeworks.List)
		homeworks.GET("/:id", h.Homeworks.Get)
		homeworks.POST("/:id/attachment", studentOnly, h.Homeworks.Attach)
		homeworks.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), h.Homeworks.Delete)
	}

	ratings := protected.Group("/ratings")
	{
		ratings.GET("", h.Ratings.List)
		ratings.GET("/:id", h.Ratings.Get)
		ratings.POST("", middleware.RequireRoles(models.RoleTeacher), h.Ratings.Create)
		ratings.PUT("/:id", staffOnly, h.Ratings.Update)
		ratings.DELETE("/:id", staffOnly, h.Ratings.Delete)
	}

	leaderboard := protected.Group("/leaderboard")
	{
		leaderboard.GET("", h.Leaderboard.Get)
		leaderboard.GET("/today", h.Leaderboard.Today)
		leaderboard.GET("/top_three", h.Leaderboard.TopThree)
		leaderboard.GET("/monthly", h.Leaderboard.Monthly)
		leaderboard.POST("/calculate", adminOnly, h.Leaderboard.Calculate)
		leaderboard.GET("/export", staffOnly, h.Leaderboard.Export)
	}

	protected.GET("/system/metrics", adminOnly, h.Metrics.Snapshot)

	return r
}
