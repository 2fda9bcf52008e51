package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAuthzUnavailable signals that the permission set could not be
// recomputed. Callers must treat it as a denial, never as a grant.
var ErrAuthzUnavailable = errors.New("authorization unavailable")

// PermissionSource computes the effective permission set for a user:
// the union of role-granted keys with per-user overrides already applied.
type PermissionSource interface {
	PermissionSet(ctx context.Context, userID string) (map[string]struct{}, error)
}

// PermKey canonicalizes a resource/action pair to a lookup key.
func PermKey(resource, action string) string {
	return strings.ToLower(resource + ":" + action)
}

// Resolver answers "may user U do action A on resource R" with bounded
// staleness: results are cached per user for the cache TTL.
type Resolver struct {
	source PermissionSource
	cache  *Cache
}

func NewResolver(source PermissionSource, ttl time.Duration) *Resolver {
	return &Resolver{
		source: source,
		cache:  NewCache(ttl),
	}
}

// Authorize resolves the user's permission set (from cache when fresh) and
// tests membership. An empty userID is always denied. Source failures
// propagate as ErrAuthzUnavailable with allowed=false.
func (r *Resolver) Authorize(ctx context.Context, userID, resource, action string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}

	perms, ok := r.cache.Get(userID)
	if !ok {
		fresh, err := r.source.PermissionSet(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
		}
		r.cache.Set(userID, fresh)
		perms = fresh
	}

	_, allowed := perms[PermKey(resource, action)]
	return allowed, nil
}

// Invalidate clears one user's cached permission set, or every set when
// userID is empty. Admin endpoints that mutate roles or overrides call
// this so changes do not wait out the TTL.
func (r *Resolver) Invalidate(userID string) {
	if userID == "" {
		r.cache.InvalidateAll()
		return
	}
	r.cache.Invalidate(userID)
}
