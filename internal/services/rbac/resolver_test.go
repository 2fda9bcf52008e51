package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sets  map[string]map[string]struct{}
	err   error
	calls int
}

func (s *fakeSource) PermissionSet(_ context.Context, userID string) (map[string]struct{}, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.sets[userID], nil
}

func setOf(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func TestAuthorizeGrantAndDeny(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create", "lokasi:read"),
	}}
	r := NewResolver(src, time.Minute)

	allowed, err := r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = r.Authorize(context.Background(), "u1", "absensi", "delete")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizeCaseInsensitiveKey(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create"),
	}}
	r := NewResolver(src, time.Minute)

	allowed, err := r.Authorize(context.Background(), "u1", "Absensi", "CREATE")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAuthorizeEmptyUserDenied(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src, time.Minute)

	allowed, err := r.Authorize(context.Background(), "", "absensi", "create")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, src.calls, "empty user must not hit the source")
}

func TestAuthorizeSourceFailureIsNotAGrant(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	r := NewResolver(src, time.Minute)

	allowed, err := r.Authorize(context.Background(), "u1", "absensi", "create")
	assert.ErrorIs(t, err, ErrAuthzUnavailable)
	assert.False(t, allowed)
}

func TestAuthorizeUsesCacheWithinTTL(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create"),
	}}
	r := NewResolver(src, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := r.Authorize(context.Background(), "u1", "absensi", "create")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.calls)
}

func TestPermissionChangeHiddenUntilExpiryOrInvalidation(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create"),
	}}
	r := NewResolver(src, time.Minute)

	allowed, err := r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)
	require.True(t, allowed)

	// Revoke at the source; the cached set must still answer.
	src.sets["u1"] = setOf()
	allowed, err = r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)
	assert.True(t, allowed, "stale grant expected before invalidation")

	r.Invalidate("u1")
	allowed, err = r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)
	assert.False(t, allowed, "invalidation must expose the revocation")
}

func TestCacheExpiryRecomputes(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create"),
	}}
	r := NewResolver(src, 10*time.Millisecond)

	_, err := r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = r.Authorize(context.Background(), "u1", "absensi", "create")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestInvalidateAll(t *testing.T) {
	src := &fakeSource{sets: map[string]map[string]struct{}{
		"u1": setOf("absensi:create"),
		"u2": setOf("lokasi:read"),
	}}
	r := NewResolver(src, time.Minute)

	_, _ = r.Authorize(context.Background(), "u1", "absensi", "create")
	_, _ = r.Authorize(context.Background(), "u2", "lokasi", "read")
	require.Equal(t, 2, src.calls)

	r.Invalidate("")

	_, _ = r.Authorize(context.Background(), "u1", "absensi", "create")
	_, _ = r.Authorize(context.Background(), "u2", "lokasi", "read")
	assert.Equal(t, 4, src.calls)
}
