package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
	"golang.org/x/sync/singleflight"
)

// ProfileState is the load state of a cached profile. Guards treat
// anything but ProfileLoaded as non-authorized (fail closed).
type ProfileState int

const (
	// ProfileUnloaded means no fetch has completed for the user.
	ProfileUnloaded ProfileState = iota
	// ProfileLoaded means the cached profile is usable.
	ProfileLoaded
	// ProfileFailed means the last fetch errored; the profile is unset.
	ProfileFailed
)

func (s ProfileState) String() string {
	switch s {
	case ProfileLoaded:
		return "loaded"
	case ProfileFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

type profileEntry struct {
	profile domainauth.Profile
	state   ProfileState
}

// ProfileResolverOptions groups dependencies for ProfileResolver.
type ProfileResolverOptions struct {
	Source ports.ProfileSource
	Logger *slog.Logger
}

// ProfileResolver fetches and caches authorization profiles keyed by user
// ID. Concurrent fetches for the same user collapse into one upstream
// call. Fetch failures are recorded, not propagated into the guard chain.
type ProfileResolver struct {
	source ports.ProfileSource
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]profileEntry
}

// NewProfileResolver constructs a ProfileResolver.
func NewProfileResolver(opts ProfileResolverOptions) *ProfileResolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileResolver{
		source:  opts.Source,
		logger:  logger,
		entries: make(map[string]profileEntry),
	}
}

// FetchProfileByUserID fetches the profile and caches the outcome. The
// returned error is recoverable: the caller may surface it, but guards
// keep working off the cached tri-state.
func (r *ProfileResolver) FetchProfileByUserID(ctx context.Context, userID string) (domainauth.Profile, error) {
	if userID == "" {
		return domainauth.Profile{}, fmt.Errorf("user ID is required")
	}

	v, err, _ := r.group.Do(userID, func() (any, error) {
		// The upstream call is shared by every collapsed caller, so it runs
		// detached from the first caller's cancellation. The source's own
		// timeout still bounds it.
		profile, fetchErr := r.source.ProfileByUserID(context.WithoutCancel(ctx), userID)
		r.mu.Lock()
		defer r.mu.Unlock()
		if fetchErr != nil {
			r.logger.WarnContext(ctx, "profile fetch failed", "user_id", userID, "error", fetchErr)
			r.entries[userID] = profileEntry{state: ProfileFailed}
			return domainauth.Profile{}, fetchErr
		}
		r.entries[userID] = profileEntry{profile: profile, state: ProfileLoaded}
		return profile, nil
	})
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	profile, ok := v.(domainauth.Profile)
	if !ok {
		return domainauth.Profile{}, fmt.Errorf("unexpected profile result type %T", v)
	}
	return profile, nil
}

// Cached returns the cached profile and its load state without fetching.
func (r *ProfileResolver) Cached(userID string) (domainauth.Profile, ProfileState) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok {
		return domainauth.Profile{}, ProfileUnloaded
	}
	return e.profile, e.state
}

// Clear drops the cached profile for one user.
func (r *ProfileResolver) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// ClearProfileData drops all cached profiles. It runs as part of logout so
// stale role or approval data never leaks into a different user's session
// on the same device.
func (r *ProfileResolver) ClearProfileData() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]profileEntry)
}
