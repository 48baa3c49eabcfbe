package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/salesops/ui-api/config"
	"github.com/salesops/ui-api/internal/adapters/authroles"
	"github.com/salesops/ui-api/internal/adapters/devsession"
	"github.com/salesops/ui-api/internal/adapters/oidcsession"
	"github.com/salesops/ui-api/internal/apiclient"
	"github.com/salesops/ui-api/internal/authstate"
	"github.com/salesops/ui-api/internal/devbackend"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
	"github.com/salesops/ui-api/internal/service"
)

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Auth     *service.AuthService
	Profiles *service.ProfileResolver
	Backend  ports.BackendGateway
	States   *authstate.Manager

	// DevBackend is non-nil only when the embedded dev backend is mounted.
	DevBackend http.Handler
}

// ServiceDeps groups dependencies for NewServices.
type ServiceDeps struct {
	Config  *config.AppConfig
	Storage ports.StateStorage
	Logger  *slog.Logger
}

// NewServices wires the session provider, backend client, state manager,
// and application services from configuration.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service dependencies are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	roles, err := authroles.NewClaimRoleMapper(cfg.Auth.RoleClaimPath, domainauth.RoleSales)
	if err != nil {
		return nil, fmt.Errorf("build role mapper: %w", err)
	}

	provider, err := buildSessionProvider(ctx, cfg, roles)
	if err != nil {
		return nil, fmt.Errorf("build session provider: %w", err)
	}

	// In dev mode with no external backend configured, mount the embedded
	// dev backend and point the client at our own /devbackend mount.
	var devBackendHandler http.Handler
	backendBase := cfg.Backend.BaseURL
	if backendBase == "" {
		if !cfg.IsDev {
			return nil, errors.New("BACKEND_BASE_URL is required outside dev mode")
		}
		db, devErr := devbackend.New(devbackend.Config{
			TokenSecret:  cfg.Auth.DevAuth.TokenSecret,
			TokenTTL:     cfg.Auth.SessionTTL,
			SeedUsername: cfg.Auth.DevAuth.SeedUsername,
			SeedPassword: cfg.Auth.DevAuth.SeedPassword,
			SeedEmail:    cfg.Auth.DevAuth.SeedEmail,
			Logger:       logger,
		})
		if devErr != nil {
			return nil, fmt.Errorf("build dev backend: %w", devErr)
		}
		devBackendHandler = db
		backendBase = strings.TrimSuffix(cfg.HTTP.BaseURL, "/") + "/devbackend"
		logger.Info("embedded dev backend mounted", "base_url", backendBase)
	}

	states := authstate.NewManager(authstate.ManagerOptions{
		Storage: deps.Storage,
		TTL:     cfg.State.TTL,
		Logger:  logger,
	})

	backend, err := apiclient.New(apiclient.Options{
		BaseURL:     backendBase,
		Credentials: authstate.ContextCredentials{},
		// A backend 401 means the session is no longer honored; sign the
		// current state out so the authenticated flag flips everywhere.
		OnUnauthorized: authstate.SignOutCurrent,
		HTTPClient:     &http.Client{Timeout: cfg.Backend.Timeout},
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build backend client: %w", err)
	}

	return &ServiceContainer{
		Auth:       service.NewAuthService(service.AuthServiceOptions{Backend: backend, Provider: provider}),
		Profiles:   service.NewProfileResolver(service.ProfileResolverOptions{Source: backend, Logger: logger}),
		Backend:    backend,
		States:     states,
		DevBackend: devBackendHandler,
	}, nil
}

// buildSessionProvider selects the provider implementation per AUTH_MODE.
//
//nolint:ireturn // the caller programs against the port.
func buildSessionProvider(ctx context.Context, cfg *config.AppConfig, roles ports.RoleMapper) (ports.SessionProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		return devsession.NewProvider(devsession.Config{
			TokenSecret: cfg.Auth.DevAuth.TokenSecret,
			SessionTTL:  cfg.Auth.SessionTTL,
			Roles:       roles,
		})
	case config.AuthModeOIDC, "":
		return oidcsession.NewProvider(ctx, oidcsession.ProviderConfig{
			IssuerURL:  cfg.Auth.OIDC.IssuerURL,
			ClientID:   cfg.Auth.OIDC.ClientID,
			SessionTTL: cfg.Auth.SessionTTL,
			Roles:      roles,
		})
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
