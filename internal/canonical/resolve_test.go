package canonical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

// existsIn builds an ExistsFunc over a fixed set of taken identifiers.
func existsIn(taken ...string) ExistsFunc {
	set := make(map[string]struct{}, len(taken))
	for _, raw := range taken {
		set[raw] = struct{}{}
	}
	return func(_ context.Context, raw string) (bool, error) {
		_, ok := set[raw]
		return ok, nil
	}
}

func TestResolveFreeCandidate(t *testing.T) {
	r := NewResolver()
	base := Identifier{Raw: "J.SMITH.4567.j@d.com", Scheme: SchemeDotted}

	res := r.Resolve(context.Background(), base, existsIn())
	assert.Equal(t, base, res.Identifier)
	assert.Zero(t, res.Attempts)
	assert.False(t, res.Fallback)
}

func TestResolveAppendsCounter(t *testing.T) {
	r := NewResolver()
	base := Identifier{Raw: "J.SMITH.4567.john.smith@domain.com", Scheme: SchemeDotted}

	res := r.Resolve(context.Background(), base, existsIn(base.Raw))
	assert.Equal(t, "J.SMITH.4567.john.smith@domain.com.01", res.Identifier.Raw)
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.Fallback)

	res = r.Resolve(context.Background(), base, existsIn(base.Raw, base.Raw+".01", base.Raw+".02"))
	assert.Equal(t, base.Raw+".03", res.Identifier.Raw)
	assert.Equal(t, 3, res.Attempts)
}

func TestResolveLegacyCounterSuffix(t *testing.T) {
	r := NewResolver()
	base := Identifier{Raw: "JSMITH1234ABC", Scheme: SchemeLegacy}

	res := r.Resolve(context.Background(), base, existsIn(base.Raw))
	assert.Equal(t, "JSMITH1234ABC01", res.Identifier.Raw)
	assert.True(t, Validate(res.Identifier.Raw, SchemeLegacy))
}

// N registrations sharing identical base attributes must yield N distinct
// identifiers, each structurally valid.
func TestResolveSequentialUniqueness(t *testing.T) {
	r := NewResolver()
	base := Synthesize(johnSmith, SchemeDotted)

	taken := map[string]struct{}{}
	exists := func(_ context.Context, raw string) (bool, error) {
		_, ok := taken[raw]
		return ok, nil
	}

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		res := r.Resolve(context.Background(), base, exists)
		require.False(t, res.Fallback)
		require.True(t, Validate(res.Identifier.Raw, SchemeDotted))

		_, dup := seen[res.Identifier.Raw]
		require.False(t, dup, "duplicate identifier %s", res.Identifier.Raw)
		seen[res.Identifier.Raw] = struct{}{}
		taken[res.Identifier.Raw] = struct{}{}
	}
}

func TestResolveExhaustionFallsBackToTimestamp(t *testing.T) {
	r := NewResolver(WithClock(fixedClock(1234567)))
	base := Identifier{Raw: "JSMITH1234ABC", Scheme: SchemeLegacy}

	// Everything is taken; the counter space 1..99 exhausts.
	everything := func(context.Context, string) (bool, error) { return true, nil }

	res := r.Resolve(context.Background(), base, everything)
	assert.True(t, res.Fallback)
	assert.Equal(t, maxCounterAttempts, res.Attempts)
	// 1234567 % 1000 = 567
	assert.Equal(t, "JSMITH1234ABC567", res.Identifier.Raw)
}

// The fallback branch must be reachable only through outage or exhaustion:
// a reachable store with a free slot never produces a fallback identifier.
func TestResolveFallbackOnlyOnOutage(t *testing.T) {
	r := NewResolver(WithClock(fixedClock(2000)))
	base := Identifier{Raw: "J.SMITH.4567.j@d.com", Scheme: SchemeDotted}

	unavailable := func(context.Context, string) (bool, error) {
		return false, errors.New("connection refused")
	}
	res := r.Resolve(context.Background(), base, unavailable)
	assert.True(t, res.Fallback)
	assert.Equal(t, base.Raw+".000", res.Identifier.Raw)

	healthy := r.Resolve(context.Background(), base, existsIn())
	assert.False(t, healthy.Fallback)
}

func TestResolveOutageMidLoop(t *testing.T) {
	r := NewResolver(WithClock(fixedClock(3042)))
	base := Identifier{Raw: "JSMITH1234ABC", Scheme: SchemeLegacy}

	calls := 0
	flaky := func(_ context.Context, raw string) (bool, error) {
		calls++
		if calls > 3 {
			return false, errors.New("connection reset")
		}
		return true, nil
	}

	res := r.Resolve(context.Background(), base, flaky)
	assert.True(t, res.Fallback)
	assert.Equal(t, "JSMITH1234ABC042", res.Identifier.Raw)
}
