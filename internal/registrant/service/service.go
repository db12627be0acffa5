package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"canonreg/internal/canonical"
	"canonreg/internal/registrant/metrics"
	"canonreg/internal/registrant/models"
	"canonreg/internal/registrant/store"
	dErrors "canonreg/pkg/domain-errors"
	"canonreg/pkg/platform/sentinel"
	"canonreg/pkg/requestcontext"
)

// insertRetries bounds how often a registration re-resolves after losing an
// insert race to the unique index. Each retry re-queries the namespace, so
// the loser lands on the next free counter.
const insertRetries = 3

// Service orchestrates registration: normalize and synthesize the canonical
// identifier, resolve collisions against the shared namespace, persist the
// pending record, and run the admin approval lifecycle.
type Service struct {
	store    store.Store
	resolver *canonical.Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// WithResolver overrides the collision resolver, mainly so tests can inject
// a fixed clock for the timestamp fallback.
func WithResolver(r *canonical.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// New constructs a registration service over the given store.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("registrant store is required")
	}
	s := &Service{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = canonical.NewResolver(canonical.WithLogger(s.logger))
	}
	return s, nil
}

// RegisterPerson synthesizes a canonical identifier for the attributes and
// persists a pending person record. It always yields some identifier: input
// malformation degrades through the normalizer, and a storage outage
// degrades to the unchecked fallback identifier rather than failing the
// registration.
func (s *Service) RegisterPerson(ctx context.Context, req RegisterPersonRequest) (*models.Person, error) {
	attrs := canonical.Attributes{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PrimaryPhone: req.Phone,
		PrimaryEmail: req.Email,
	}

	var created *models.Person
	err := s.register(ctx, attrs, func(id canonical.Identifier) error {
		now := requestcontext.Now(ctx)
		p, err := models.NewPerson(uuid.New(), id, req.FirstName, req.LastName, req.Email, req.Phone, now)
		if err != nil {
			return err
		}
		if err := s.store.CreatePerson(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRegistration(string(models.KindPerson))
	s.logger.InfoContext(ctx, "registered person",
		"canonical_id", created.CanonicalID.Raw,
		"request_id", requestcontext.RequestID(ctx),
	)
	return created, nil
}

// RegisterOrganization synthesizes an identifier from the organization's
// name and primary contact attributes. Organizations share the person
// namespace; nothing about resolution differs.
func (s *Service) RegisterOrganization(ctx context.Context, req RegisterOrganizationRequest) (*models.Organization, error) {
	attrs := canonical.Attributes{
		FirstName:    req.Name,
		LastName:     req.Name,
		PrimaryPhone: req.Phone,
		PrimaryEmail: req.ContactEmail,
	}

	var created *models.Organization
	err := s.register(ctx, attrs, func(id canonical.Identifier) error {
		now := requestcontext.Now(ctx)
		o, err := models.NewOrganization(uuid.New(), id, req.Name, req.OrgType, req.ContactEmail, req.Phone, now)
		if err != nil {
			return err
		}
		o.Address = req.Address
		o.Website = req.Website
		if err := s.store.CreateOrganization(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRegistration(string(models.KindOrganization))
	s.logger.InfoContext(ctx, "registered organization",
		"canonical_id", created.CanonicalID.Raw,
		"request_id", requestcontext.RequestID(ctx),
	)
	return created, nil
}

// register runs the synthesize→resolve→insert loop shared by both kinds.
// The resolver's pre-check races with concurrent registrations; the unique
// index is the arbiter, and a conflict on insert re-resolves for the next
// counter.
func (s *Service) register(ctx context.Context, attrs canonical.Attributes, insert func(canonical.Identifier) error) error {
	base := canonical.Synthesize(attrs, canonical.ActiveScheme)
	s.metrics.ObserveSynthesis(string(base.Scheme))

	for attempt := 0; ; attempt++ {
		res := s.resolver.Resolve(ctx, base, s.store.CanonicalIDExists)
		s.metrics.ObserveResolution(res.Attempts, res.Fallback)

		err := insert(res.Identifier)
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < insertRetries {
			s.logger.WarnContext(ctx, "lost canonical id race, retrying",
				"canonical_id", res.Identifier.Raw,
				"attempt", attempt+1,
			)
			continue
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "could not allocate a unique canonical identifier")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
	}
}

// Approve transitions a pending registrant to approved, making its canonical
// identifier authoritative. The acting admin comes from the request context.
func (s *Service) Approve(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	now := requestcontext.Now(ctx)
	approver := requestcontext.Admin(ctx)

	switch kind {
	case models.KindPerson:
		p, err := s.store.FindPerson(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "person not found")
		}
		if err := p.CanApprove(); err != nil {
			return err
		}
		p.ApplyApproval(approver, now)
		if err := s.store.UpdatePerson(ctx, p, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve person")
		}
	case models.KindOrganization:
		o, err := s.store.FindOrganization(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "organization not found")
		}
		if err := o.CanApprove(); err != nil {
			return err
		}
		o.ApplyApproval(approver, now)
		if err := s.store.UpdateOrganization(ctx, o, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve organization")
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unknown registrant kind")
	}

	s.logger.InfoContext(ctx, "approved registrant", "kind", string(kind), "id", id.String())
	return nil
}

// Reject transitions a pending registrant to rejected, releasing its
// canonical identifier back to the namespace.
func (s *Service) Reject(ctx context.Context, kind models.Kind, id uuid.UUID, reason string) error {
	now := requestcontext.Now(ctx)

	switch kind {
	case models.KindPerson:
		p, err := s.store.FindPerson(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "person not found")
		}
		if err := p.CanReject(); err != nil {
			return err
		}
		p.ApplyRejection(reason)
		if err := s.store.UpdatePerson(ctx, p, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject person")
		}
	case models.KindOrganization:
		o, err := s.store.FindOrganization(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "organization not found")
		}
		if err := o.CanReject(); err != nil {
			return err
		}
		o.ApplyRejection(reason)
		if err := s.store.UpdateOrganization(ctx, o, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject organization")
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unknown registrant kind")
	}

	s.logger.InfoContext(ctx, "rejected registrant", "kind", string(kind), "id", id.String())
	return nil
}

// ListPending returns the admin review queue for one kind.
func (s *Service) ListPending(ctx context.Context, kind models.Kind) ([]*models.Record, error) {
	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown registrant kind")
	}
	records, err := s.store.ListPending(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending registrants")
	}
	return records, nil
}

func wrapStoreErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store error")
}
