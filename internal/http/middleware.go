package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/salesops/ui-api/internal/authstate"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/service"
)

// stateCookieName carries the browser state ID keying the durable auth
// state record. The cookie is an opaque key; it never holds credentials.
const stateCookieName = "state_id"

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AuthStateConfig groups dependencies for the WithAuthState middleware.
type AuthStateConfig struct {
	States       *authstate.Manager
	CookieDomain string
	Logger       *slog.Logger
}

// WithAuthState binds the request to its auth-state container: it reads
// the state cookie (minting one for first-time visitors), rehydrates the
// store from durable storage, and puts it in the request context. Every
// downstream read of "is authenticated" goes through this store.
func WithAuthState(cfg AuthStateConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(stateCookieName); err == nil && c.Value != "" {
				id = c.Value
			}
			if id == "" {
				id = cfg.States.NewID()
				setStateCookie(w, r, cfg.CookieDomain, id)
			}

			store, err := cfg.States.Get(r.Context(), id)
			if err != nil {
				// Storage trouble must not lock users out of public pages;
				// proceed with an unauthenticated in-memory store.
				logger.WarnContext(r.Context(), "load auth state failed", "state_id", id, "error", err)
				store = authstate.New(id, nil, authstate.Options{Logger: logger})
			}

			ctx := authstate.WithStore(r.Context(), store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setStateCookie(w http.ResponseWriter, r *http.Request, domain, id string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    id,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(authstate.DefaultTTL.Seconds()),
	})
}

// RequireAuth returns a middleware that requires an authenticated state.
// API requests get a 401 JSON response; page requests redirect to /login.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := authstate.FromContext(r.Context())
			if store == nil || !store.Authenticated() {
				denyUnauthenticated(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns a middleware admitting admin and super-admin roles.
// The predicate is evaluated synchronously against the already-loaded
// profile; an unloaded or failed profile denies (fail closed) so no
// privileged content renders before the profile fetch resolves.
func RequireAdmin(profiles *service.ProfileResolver) func(http.Handler) http.Handler {
	return requireRole(profiles, domainauth.Role.IsAdmin)
}

// RequireSuperAdmin returns a middleware admitting only the super-admin role.
func RequireSuperAdmin(profiles *service.ProfileResolver) func(http.Handler) http.Handler {
	return requireRole(profiles, domainauth.Role.IsSuperAdmin)
}

func requireRole(profiles *service.ProfileResolver, allowed func(domainauth.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := authstate.FromContext(r.Context())
			if store == nil || !store.Authenticated() {
				denyUnauthenticated(w, r)
				return
			}

			identity := store.State().Identity
			profile, state := profiles.Cached(identity.ID)
			if state != service.ProfileLoaded || !allowed(profile.Role) {
				denyForbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// denyUnauthenticated sends API callers a 401 and browsers to the login page.
func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	redirectParam := url.QueryEscape(safeRedirectPath(r.URL.RequestURI()))
	http.Redirect(w, r, "/login?redirect_uri="+redirectParam, http.StatusSeeOther)
}

// denyForbidden sends API callers a 403 and browsers to the settings page.
func denyForbidden(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
		return
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// isAPIRequest distinguishes JSON API calls from page navigations:
// /api/ and /auth/ routes are API; otherwise a JSON Accept preference
// without text/html counts as API.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/auth/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
