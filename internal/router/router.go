package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/handler"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Perizinan *handler.PerizinanHandler
	Student   *handler.StudentHandler
	Teacher   *handler.TeacherHandler
	Schedule  *handler.ScheduleHandler
	Report    *handler.ReportHandler
	Media     *handler.MediaHandler
	Feed      *handler.FeedHandler
}

// Deps are the shared collaborators of the middleware chain.
type Deps struct {
	Tokens       middleware.TokenValidator
	Sessions     middleware.SessionResolver
	Authz        *policy.Enforcer
	LoginLimiter *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Deps, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics())
	router.Use(middleware.Brotli())

	// Uploaded documents have random names and never change.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// allow gates a route to the roles the policy grants act on obj.
	allow := func(obj policy.Object, act policy.Action) gin.HandlerFunc {
		return middleware.RequireRoles(deps.Authz.Roles(obj, act)...)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore(), middleware.ParseToken(deps.Tokens))
	{
		auth.POST("/login", deps.LoginLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", middleware.ResolveSession(deps.Sessions), handlers.Auth.Me)
		auth.POST("/reauthenticate",
			deps.LoginLimiter.Middleware(),
			middleware.ResolveSession(deps.Sessions),
			middleware.RequireSession(),
			handlers.Auth.Reauthenticate,
		)
	}

	// ─── 2. API Group (Session + Role Gate) ─────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.NoStore(),
		middleware.ParseToken(deps.Tokens),
		middleware.ResolveSession(deps.Sessions),
	)
	{
		// Resolves its own session state, see DashboardHandler.
		api.GET("/dashboard", handlers.Dashboard.Destination)

		// Leave requests
		api.GET("/perizinan", allow(policy.ObjectPerizinan, policy.ActionRead), handlers.Perizinan.ListPerizinan)
		api.GET("/perizinan/:id", allow(policy.ObjectPerizinan, policy.ActionRead), handlers.Perizinan.GetPerizinan)
		api.POST("/perizinan", allow(policy.ObjectPerizinan, policy.ActionCreate), handlers.Perizinan.CreatePerizinan)
		api.PATCH("/perizinan/:id", allow(policy.ObjectPerizinan, policy.ActionEdit), handlers.Perizinan.UpdatePerizinanField)
		api.PUT("/perizinan/:id/status", allow(policy.ObjectPerizinan, policy.ActionDecide), handlers.Perizinan.UpdatePerizinanStatus)
		api.DELETE("/perizinan/:id", allow(policy.ObjectPerizinan, policy.ActionDelete), handlers.Perizinan.DeletePerizinan)

		api.POST("/media/upload", allow(policy.ObjectMedia, policy.ActionUpload), handlers.Media.UploadDocument)

		// Roster
		studentsGroup := api.Group("/students")
		{
			studentsGroup.GET("", allow(policy.ObjectStudents, policy.ActionRead), handlers.Student.ListStudents)
			studentsGroup.POST("", allow(policy.ObjectStudents, policy.ActionManage), handlers.Student.CreateStudent)
			studentsGroup.POST("/import", allow(policy.ObjectStudents, policy.ActionManage), handlers.Student.ImportStudents)
			studentsGroup.PATCH("/:id", allow(policy.ObjectStudents, policy.ActionManage), handlers.Student.UpdateStudentField)
			studentsGroup.DELETE("/:id", allow(policy.ObjectStudents, policy.ActionManage), handlers.Student.DeleteStudent)
		}

		// Staff accounts
		teachersGroup := api.Group("/teachers")
		teachersGroup.Use(allow(policy.ObjectTeachers, policy.ActionManage))
		{
			teachersGroup.GET("", handlers.Teacher.ListTeachers)
			teachersGroup.POST("", handlers.Teacher.CreateTeacher)
			teachersGroup.GET("/audit", handlers.Teacher.AuditTeachers)
			teachersGroup.PATCH("/:id", handlers.Teacher.UpdateTeacherField)
			teachersGroup.DELETE("/:id", handlers.Teacher.DeleteTeacher)
		}

		// Duty schedules
		schedulesGroup := api.Group("/schedules")
		{
			schedulesGroup.GET("", allow(policy.ObjectSchedules, policy.ActionRead), handlers.Schedule.ListSchedules)
			schedulesGroup.POST("", allow(policy.ObjectSchedules, policy.ActionManage), handlers.Schedule.CreateSchedule)
			schedulesGroup.PUT("/:id", allow(policy.ObjectSchedules, policy.ActionManage), handlers.Schedule.UpdateSchedule)
			schedulesGroup.DELETE("/:id", allow(policy.ObjectSchedules, policy.ActionManage), handlers.Schedule.DeleteSchedule)
		}

		// Reports
		reportsGroup := api.Group("/reports")
		reportsGroup.Use(allow(policy.ObjectReports, policy.ActionExport))
		{
			reportsGroup.GET("/perizinan", handlers.Report.ExportPerizinan)
			reportsGroup.GET("/teachers", handlers.Report.ExportTeachers)
			reportsGroup.GET("/schedules", handlers.Report.ExportSchedules)
			reportsGroup.GET("/analytics", handlers.Report.Analytics)
		}

		// Backup
		backupGroup := api.Group("/backup")
		backupGroup.Use(allow(policy.ObjectBackup, policy.ActionManage))
		{
			backupGroup.GET("", handlers.Report.Backup)
			backupGroup.POST("/restore", handlers.Report.Restore)
		}
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	// Browsers cannot set headers on the upgrade, the token comes in ?token=.
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.ParseToken(deps.Tokens),
		middleware.ResolveSession(deps.Sessions),
		allow(policy.ObjectPerizinan, policy.ActionRead),
	)
	{
		ws.GET("/perizinan/stream", handlers.Feed.Stream)
	}

	return router
}
