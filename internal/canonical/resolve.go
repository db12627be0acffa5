package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxCounterAttempts bounds the disambiguation loop. Counters run 1..99 and
// render as a zero-padded 2-digit suffix.
const maxCounterAttempts = 99

// ExistsFunc reports whether an identifier is already taken anywhere in the
// registry namespace. An error means the store could not answer, not that the
// identifier exists.
type ExistsFunc func(ctx context.Context, raw string) (bool, error)

// Resolution carries the outcome of collision resolution.
//
// Fallback is true only when the timestamp-suffixed identifier was issued
// without a confirmed uniqueness check: either the counter space was
// exhausted or the store was unreachable. Callers treating uniqueness as a
// hard requirement must inspect it.
type Resolution struct {
	Identifier Identifier
	Attempts   int
	Fallback   bool
}

// Resolver finds a free identifier for a synthesized candidate by re-querying
// the registry before each attempt. No in-memory counter state is kept; the
// disambiguation counter exists only as a suffix on the final string.
type Resolver struct {
	clock  func() time.Time
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock sets the time source for the timestamp fallback suffix.
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger for fallback events.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a Resolver. The zero configuration uses wall-clock
// time and logs nothing.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first unoccupied identifier derived from the candidate.
//
// The candidate itself is tried first, then counters 1..99 as suffixes. On
// exhaustion, or when exists cannot be answered, it degrades to a
// timestamp-derived suffix accepted without a further check. That trades a
// small collision risk for availability during storage outages; the database
// unique constraint remains the final arbiter on insert.
func (r *Resolver) Resolve(ctx context.Context, candidate Identifier, exists ExistsFunc) Resolution {
	taken, err := exists(ctx, candidate.Raw)
	if err != nil {
		return r.fallback(ctx, candidate, 0, err)
	}
	if !taken {
		return Resolution{Identifier: candidate, Attempts: 0}
	}

	for counter := 1; counter <= maxCounterAttempts; counter++ {
		attempt := WithCounter(candidate, counter)
		taken, err := exists(ctx, attempt.Raw)
		if err != nil {
			return r.fallback(ctx, candidate, counter, err)
		}
		if !taken {
			return Resolution{Identifier: attempt, Attempts: counter}
		}
	}

	return r.fallback(ctx, candidate, maxCounterAttempts, nil)
}

// WithCounter renders a disambiguation counter onto a base identifier.
// Legacy appends the two digits directly; dotted adds a separate segment.
func WithCounter(base Identifier, counter int) Identifier {
	var raw string
	switch base.Scheme {
	case SchemeLegacy:
		raw = fmt.Sprintf("%s%02d", base.Raw, counter)
	default:
		raw = fmt.Sprintf("%s.%02d", base.Raw, counter)
	}
	return Identifier{Raw: raw, Scheme: base.Scheme}
}

func (r *Resolver) fallback(ctx context.Context, base Identifier, attempts int, cause error) Resolution {
	suffix := int(r.clock().Unix()) % 1000

	var raw string
	switch base.Scheme {
	case SchemeLegacy:
		raw = fmt.Sprintf("%s%03d", base.Raw, suffix)
	default:
		raw = fmt.Sprintf("%s.%03d", base.Raw, suffix)
	}

	if r.logger != nil {
		r.logger.WarnContext(ctx, "issuing unchecked fallback identifier",
			"base", base.Raw,
			"attempts", attempts,
			"cause", fmt.Sprint(cause),
		)
	}

	return Resolution{
		Identifier: Identifier{Raw: raw, Scheme: base.Scheme},
		Attempts:   attempts,
		Fallback:   true,
	}
}
