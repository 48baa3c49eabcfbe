package httpx

import (
	"log/slog"
	"net/http"

	"github.com/salesops/ui-api/internal/authstate"
	"github.com/salesops/ui-api/internal/ports"
	"github.com/salesops/ui-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     *service.AuthService
	Profiles *service.ProfileResolver
	Backend  ports.BackendGateway
	States   *authstate.Manager

	// DevBackend, when set, is mounted under /devbackend/ so the full
	// login flow runs without external infrastructure.
	DevBackend http.Handler

	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router. Every route runs
// inside the auth-state middleware; guards wrap the protected subtrees.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:      services.Auth,
		Profiles: services.Profiles,
		Logger:   services.Logger,
	}
	profileHandlers := &ProfileHandlers{
		Resolver: services.Profiles,
		Backend:  services.Backend,
		Logger:   services.Logger,
	}

	requireAuth := RequireAuth()
	requireAdmin := RequireAdmin(services.Profiles)
	requireSuperAdmin := RequireSuperAdmin(services.Profiles)

	// Auth lifecycle
	mux.Handle("POST /auth/login", http.HandlerFunc(authHandlers.Login))
	mux.Handle("POST /auth/register", http.HandlerFunc(authHandlers.Register))
	mux.Handle("POST /auth/logout", http.HandlerFunc(authHandlers.Logout))
	mux.Handle("GET /auth/status", http.HandlerFunc(authHandlers.Status))

	// Profiles API
	mux.Handle("GET /api/profiles/user/{userID}", requireAuth(http.HandlerFunc(profileHandlers.GetByUserID)))
	mux.Handle("POST /api/profiles/{id}/approve", requireAdmin(http.HandlerFunc(profileHandlers.Approve)))

	// Pages. /login and /settings are guard fallback targets: /login is
	// public, /settings requires only authentication so the admin guards
	// can redirect there without looping.
	mux.Handle("GET /login", pageHandler("login"))
	mux.Handle("GET /dashboard", requireAuth(pageHandler("dashboard")))
	mux.Handle("GET /settings", requireAuth(pageHandler("settings")))
	mux.Handle("GET /admin", requireAdmin(pageHandler("admin")))
	mux.Handle("GET /admin/system", requireSuperAdmin(pageHandler("admin_system")))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.DevBackend != nil {
		mux.Handle("/devbackend/", http.StripPrefix("/devbackend", services.DevBackend))
	}

	stateMiddleware := WithAuthState(AuthStateConfig{
		States:       services.States,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	})
	return stateMiddleware(mux)
}
