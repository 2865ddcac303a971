package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/mistreatedbee/Communityhub-server/internal/api/handlers"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/community"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/invitations"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
	"github.com/mistreatedbee/Communityhub-server/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB                *gorm.DB
	Redis             *redis.Client
	Logger            *slog.Logger
	JWTService        *auth.JWTService
	AuthService       *auth.Service
	BlobStore         storage.BlobStore
	AsynqClient       *asynq.Client
	AllowedOrigins    []string
	RateLimitReqs     int
	RateLimitSecs     int
	InvitationTTLDays int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	recorder := audit.NewRecorder(cfg.AsynqClient, cfg.DB, cfg.Logger)
	memberService := membership.NewService(cfg.DB, recorder)
	communityService := community.NewService(cfg.DB, recorder)
	invitationService := invitations.NewService(cfg.DB, cfg.AsynqClient, recorder, cfg.Logger, cfg.InvitationTTLDays)
	fileService := storage.NewFileService(cfg.DB, cfg.BlobStore, recorder, cfg.Logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	userHandler := handlers.NewUserHandler(cfg.AuthService)
	communityHandler := handlers.NewCommunityHandler(communityService, memberService)
	memberHandler := handlers.NewMemberHandler(memberService)
	invitationHandler := handlers.NewInvitationHandler(invitationService, cfg.AuthService)
	postHandler := handlers.NewPostHandler(cfg.DB, recorder)
	resourceHandler := handlers.NewResourceHandler(cfg.DB)
	groupHandler := handlers.NewGroupHandler(cfg.DB)
	eventHandler := handlers.NewEventHandler(cfg.DB)
	programHandler := handlers.NewProgramHandler(cfg.DB)
	announcementHandler := handlers.NewAnnouncementHandler(cfg.DB)
	fileHandler := handlers.NewFileHandler(fileService)
	adminHandler := handlers.NewAdminHandler(cfg.DB, communityService, recorder)
	dashboardHandler := handlers.NewDashboardHandler(cfg.DB)

	// Role gates, widest to narrowest.
	anyMember := middleware.RequireCommunityRole(memberService)
	moderators := middleware.RequireCommunityRole(memberService,
		models.MembershipRoleOwner, models.MembershipRoleAdmin, models.MembershipRoleModerator)
	admins := middleware.RequireCommunityRole(memberService,
		models.MembershipRoleOwner, models.MembershipRoleAdmin)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.DB))

			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateMe)

			// Joining a community and redeeming an invitation happen
			// before any membership exists, so neither sits behind a
			// role gate.
			r.Post("/invitations/accept", invitationHandler.Accept)

			r.Post("/communities", communityHandler.Create)
			r.Get("/communities", communityHandler.ListMine)

			r.Route("/communities/{communityID}", func(r chi.Router) {
				r.Post("/join", communityHandler.Join)

				r.Group(func(r chi.Router) {
					r.Use(anyMember)
					r.Get("/", communityHandler.Get)
					r.Get("/stats", dashboardHandler.Stats)
					r.Get("/members", memberHandler.List)
					r.Post("/leave", memberHandler.Leave)
				})

				r.Group(func(r chi.Router) {
					r.Use(admins)
					r.Put("/", communityHandler.Update)
					r.Put("/settings", communityHandler.UpdateSettings)

					r.Put("/members/{userID}/role", memberHandler.UpdateRole)
					r.Put("/members/{userID}/status", memberHandler.UpdateStatus)
					r.Delete("/members/{userID}", memberHandler.Remove)

					r.Post("/invitations", invitationHandler.Create)
					r.Get("/invitations", invitationHandler.List)
					r.Post("/invitations/{invitationID}/resend", invitationHandler.Resend)
					r.Delete("/invitations/{invitationID}", invitationHandler.Revoke)
				})

				r.Route("/posts", func(r chi.Router) {
					r.With(anyMember).Get("/", postHandler.List)
					r.With(anyMember).Post("/", postHandler.Create)
					r.With(anyMember).Get("/{postID}", postHandler.Get)
					r.With(anyMember).Put("/{postID}", postHandler.Update)
					r.With(anyMember).Delete("/{postID}", postHandler.Delete)
					r.With(moderators).Put("/{postID}/pin", postHandler.Pin)
				})

				r.Route("/announcements", func(r chi.Router) {
					r.With(anyMember).Get("/", announcementHandler.List)
					r.With(anyMember).Get("/{announcementID}", announcementHandler.Get)
					r.With(moderators).Post("/", announcementHandler.Create)
					r.With(moderators).Put("/{announcementID}", announcementHandler.Update)
					r.With(moderators).Delete("/{announcementID}", announcementHandler.Delete)
				})

				r.Route("/events", func(r chi.Router) {
					r.With(anyMember).Get("/", eventHandler.List)
					r.With(anyMember).Get("/{eventID}", eventHandler.Get)
					r.With(anyMember).Post("/{eventID}/rsvp", eventHandler.RSVP)
					r.With(moderators).Post("/", eventHandler.Create)
					r.With(moderators).Put("/{eventID}", eventHandler.Update)
					r.With(moderators).Delete("/{eventID}", eventHandler.Delete)
				})

				r.Route("/groups", func(r chi.Router) {
					r.With(anyMember).Get("/", groupHandler.List)
					r.With(anyMember).Get("/{groupID}", groupHandler.Get)
					r.With(anyMember).Post("/", groupHandler.Create)
					r.With(anyMember).Post("/{groupID}/join", groupHandler.Join)
					r.With(anyMember).Post("/{groupID}/leave", groupHandler.Leave)
					r.With(moderators).Put("/{groupID}", groupHandler.Update)
					r.With(moderators).Delete("/{groupID}", groupHandler.Delete)
				})

				r.Route("/programs", func(r chi.Router) {
					r.With(anyMember).Get("/", programHandler.List)
					r.With(anyMember).Get("/{programID}", programHandler.Get)
					r.With(anyMember).Post("/{programID}/enroll", programHandler.Enroll)
					r.With(anyMember).Post("/{programID}/withdraw", programHandler.Withdraw)
					r.With(moderators).Post("/", programHandler.Create)
					r.With(moderators).Put("/{programID}", programHandler.Update)
					r.With(moderators).Delete("/{programID}", programHandler.Delete)
				})

				r.Route("/resources", func(r chi.Router) {
					r.With(anyMember).Get("/", resourceHandler.List)
					r.With(anyMember).Get("/{resourceID}", resourceHandler.Get)
					r.With(moderators).Post("/", resourceHandler.Create)
					r.With(moderators).Put("/{resourceID}", resourceHandler.Update)
					r.With(moderators).Delete("/{resourceID}", resourceHandler.Delete)
				})

				r.Route("/files", func(r chi.Router) {
					r.With(anyMember).Post("/", fileHandler.Upload)
					r.With(anyMember).Get("/{fileID}", fileHandler.Download)
					r.With(moderators).Delete("/{fileID}", fileHandler.Delete)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireSuperAdmin())
				r.Get("/users", adminHandler.ListUsers)
				r.Put("/users/{userID}/status", adminHandler.UpdateUserStatus)
				r.Put("/users/{userID}/role", adminHandler.UpdateUserRole)
				r.Get("/communities", adminHandler.ListCommunities)
				r.Post("/communities", adminHandler.ProvisionCommunity)
				r.Put("/communities/{communityID}/status", adminHandler.UpdateCommunityStatus)
				r.Delete("/communities/{communityID}", adminHandler.DeleteCommunity)
			})
		})
	})

	return &Router{r}
}

var _ http.Handler = (*Router)(nil)
