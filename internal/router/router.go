package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-portal-api/internal/config"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Verifier middleware.TokenVerifier
	Guard    middleware.GuardConfig
	// SignInLimiter guards the credential endpoints. Nil disables it.
	SignInLimiter fiber.Handler

	AuthHandler         *handler.AuthHandler
	NavigationHandler   *handler.NavigationHandler
	StudentHandler      *handler.StudentHandler
	TeacherHandler      *handler.TeacherHandler
	DataEntryHandler    *handler.DataEntryHandler
	NotificationHandler *handler.NotificationHandler
	GalleryHandler      *handler.GalleryHandler
	FeeHandler          *handler.FeeHandler
	TimetableHandler    *handler.TimetableHandler
	LeaveHandler        *handler.LeaveHandler
	ActivityHandler     *handler.ActivityHandler
	AnalyticsHandler    *handler.AdminAnalyticsHandler
	DashboardHandler    *handler.StudentDashboardHandler
	UploadHandler       *handler.UploadHandler
	StreamHandler       *handler.StreamHandler
	SeedHandler         *handler.SeedHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers. Every request is authenticated
	// here without rejecting; the role guards below decide.
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	if deps.Verifier != nil {
		api.Use(middleware.Authenticate(deps.Verifier))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	// Public pages
	public := api.Group("/public")
	if deps.TimetableHandler != nil {
		deps.TimetableHandler.RegisterReadOnly(public.Group("/timetables"))
	}
	if deps.GalleryHandler != nil {
		deps.GalleryHandler.RegisterPublic(public.Group("/gallery"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterPublic(public.Group("/notifications", middleware.ResolveProfile(deps.Guard)))
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.SignInLimiter)
	}

	if deps.NavigationHandler != nil {
		deps.NavigationHandler.Register(api)
		deps.NavigationHandler.RegisterShell(api.Group("/shell"))
	}

	if deps.StreamHandler != nil {
		deps.StreamHandler.Register(api)
	}

	registerAdmin(api.Group("/admin", middleware.RouteGuard(deps.Guard, models.RoleAdmin)), deps)
	registerDataEntry(api.Group("/data-entry", middleware.RouteGuard(deps.Guard, models.RoleDataEntry)), deps)
	registerTeacher(api.Group("/teacher", middleware.RouteGuard(deps.Guard, models.RoleTeacher)), deps)
	registerStudent(api.Group("/student", middleware.RouteGuard(deps.Guard, models.RoleStudent)), deps)
}

func registerAdmin(admin fiber.Router, deps Dependencies) {
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(admin.Group("/students"))
	}
	if deps.TeacherHandler != nil {
		deps.TeacherHandler.Register(admin.Group("/teachers"))
	}
	if deps.DataEntryHandler != nil {
		deps.DataEntryHandler.Register(admin.Group("/data-entry-admins"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(admin.Group("/notifications"))
	}
	if deps.GalleryHandler != nil {
		deps.GalleryHandler.Register(admin.Group("/albums"))
	}
	if deps.FeeHandler != nil {
		deps.FeeHandler.Register(admin.Group("/fees"))
	}
	if deps.TimetableHandler != nil {
		deps.TimetableHandler.Register(admin.Group("/timetables"))
	}
	if deps.LeaveHandler != nil {
		deps.LeaveHandler.RegisterAdmin(admin.Group("/leave-requests"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(admin.Group("/uploads"))
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(admin.Group("/analytics"))
	}
}

func registerDataEntry(desk fiber.Router, deps Dependencies) {
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(desk.Group("/students"))
	}
	if deps.FeeHandler != nil {
		deps.FeeHandler.RegisterDesk(desk.Group("/fees"))
	}
}

func registerTeacher(teacher fiber.Router, deps Dependencies) {
	if deps.LeaveHandler != nil {
		deps.LeaveHandler.RegisterTeacher(teacher.Group("/leave-requests"))
	}
	if deps.TimetableHandler != nil {
		deps.TimetableHandler.RegisterReadOnly(teacher.Group("/timetables"))
	}
}

func registerStudent(student fiber.Router, deps Dependencies) {
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(student)
	}
	if deps.LeaveHandler != nil {
		deps.LeaveHandler.RegisterStudent(student.Group("/leave-requests"))
	}
	if deps.FeeHandler != nil {
		deps.FeeHandler.RegisterStudent(student.Group("/fees"))
	}
	if deps.TimetableHandler != nil {
		deps.TimetableHandler.RegisterReadOnly(student.Group("/timetables"))
	}
}
