package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"canonreg/internal/canonical"
	"canonreg/internal/lookup/metrics"
	"canonreg/internal/platform/redis"
	"canonreg/internal/registrant/models"
	dErrors "canonreg/pkg/domain-errors"
	"canonreg/pkg/platform/sentinel"
	"canonreg/pkg/requestcontext"
)

// RecordFinder resolves a canonical identifier to the registrant it names.
type RecordFinder interface {
	FindByCanonicalID(ctx context.Context, raw string) (*models.Record, error)
}

// Inspection is the result of running an identifier through both grammars
// without touching the store.
type Inspection struct {
	Raw         string
	Scheme      canonical.Scheme
	ValidLegacy bool
	ValidDotted bool
	Fields      canonical.Fields
	Parsed      bool
}

// Service answers reverse lookups: given a canonical identifier, validate it
// against the scheme grammars, decompose it, and resolve it to a registrant
// record. Resolution is cache-aside over Redis when a cache is configured.
type Service struct {
	finder  RecordFinder
	cache   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables the Redis lookup cache. A nil client leaves the service
// uncached.
func WithCache(c *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// New constructs a lookup service over the given record finder.
func New(finder RecordFinder, opts ...Option) (*Service, error) {
	if finder == nil {
		return nil, fmt.Errorf("record finder is required")
	}
	s := &Service{
		finder: finder,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Inspect validates raw against both grammars and decomposes it. It never
// errors: malformed input just reports as invalid under both schemes.
func (s *Service) Inspect(_ context.Context, raw string) Inspection {
	insp := Inspection{
		Raw:         raw,
		Scheme:      canonical.DetectScheme(raw),
		ValidLegacy: canonical.Validate(raw, canonical.SchemeLegacy),
		ValidDotted: canonical.Validate(raw, canonical.SchemeDotted),
	}
	insp.Fields, insp.Parsed = canonical.Parse(raw)

	result := "invalid"
	if insp.Parsed {
		result = string(insp.Fields.Scheme)
	}
	s.metrics.ObserveValidation(result)
	return insp
}

// Resolve returns the registrant record a canonical identifier names. The
// store is consulted for any input: stored identifiers that conform to
// neither grammar (prefixed legacy organization ids from the original
// dataset) still resolve. Grammar only classifies the failure when nothing
// is found.
func (s *Service) Resolve(ctx context.Context, raw string) (*models.Record, error) {
	if rec, ok := s.cacheGet(ctx, raw); ok {
		s.metrics.ObserveLookup("hit")
		return rec, nil
	}

	rec, err := s.finder.FindByCanonicalID(ctx, raw)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if _, ok := canonical.Parse(raw); !ok {
				s.metrics.ObserveLookup("invalid")
				return nil, dErrors.New(dErrors.CodeValidation, "identifier matches no known scheme")
			}
			s.metrics.ObserveLookup("miss")
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no registrant holds this identifier")
		}
		s.metrics.ObserveLookup("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup failed")
	}

	s.cacheSet(ctx, raw, rec)
	s.metrics.ObserveLookup("found")
	return rec, nil
}

func (s *Service) cacheGet(ctx context.Context, raw string) (*models.Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, cacheKey(raw)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			s.logger.WarnContext(ctx, "lookup cache read failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		s.metrics.ObserveCache(false)
		return nil, false
	}

	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		// Stale or corrupt entry; fall through to the store.
		s.metrics.ObserveCache(false)
		return nil, false
	}
	s.metrics.ObserveCache(true)
	return &rec, true
}

// cacheSet is best effort. A cache write failure never fails the lookup.
func (s *Service) cacheSet(ctx context.Context, raw string, rec *models.Record) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(raw), payload, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "lookup cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func cacheKey(raw string) string {
	return "lookup:" + raw
}
