package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("property-service/asset")

const defaultConcurrency = 4

// DeleteOutcome reports what happened to one locator during physical removal.
type DeleteOutcome struct {
	Locator string
	Kind    Kind
	Skipped bool // unrecognised locator or no backend of that kind configured
	Err     error
}

// Failed reports whether the stored bytes may still exist.
func (o DeleteOutcome) Failed() bool { return o.Err != nil }

// Reconciliation is the result of applying an image edit to a listing.
type Reconciliation struct {
	Images  []string
	Added   []string
	Removed []DeleteOutcome
}

// Orphans lists removed locators whose bytes could not be deleted.
func (r Reconciliation) Orphans() []DeleteOutcome {
	var out []DeleteOutcome
	for _, o := range r.Removed {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Manager uploads new images to the active backend and routes deletions to
// whichever backend owns each locator.
type Manager struct {
	active      Backend
	backends    map[Kind]Backend
	classifier  Classifier
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.MetricsManager
}

type Option func(*Manager)

// WithBackend registers an additional backend used for deletions only.
func WithBackend(b Backend) Option {
	return func(m *Manager) {
		if b != nil {
			m.backends[b.Kind()] = b
		}
	}
}

// WithConcurrency bounds the number of simultaneous backend calls per request.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

func WithMetrics(mm *metrics.MetricsManager) Option {
	return func(m *Manager) { m.metrics = mm }
}

func NewManager(active Backend, classifier Classifier, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		active:      active,
		backends:    map[Kind]Backend{active.Kind(): active},
		classifier:  classifier,
		concurrency: defaultConcurrency,
		logger:      log.Named("AssetManager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ActiveKind is the backend new uploads go to.
func (m *Manager) ActiveKind() Kind { return m.active.Kind() }

// UploadAll stores every upload and returns their locators in input order.
// It waits for all uploads to settle. If any fails, or ctx is cancelled, the
// successful ones are removed best-effort and an error is returned.
func (m *Manager) UploadAll(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, domain.Validationf("at least one image is required")
	}

	ctx, span := tracer.Start(ctx, "AssetManager.UploadAll")
	defer span.End()
	span.SetAttributes(attribute.Int("images.count", len(uploads)), attribute.String("storage.backend", string(m.active.Kind())))

	// Started puts run to completion even if the caller goes away, so that
	// their results can be cleaned up below.
	putCtx := context.WithoutCancel(ctx)
	locators := make([]string, len(uploads))
	errs := make([]error, len(uploads))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, u := range uploads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			loc, err := m.active.Put(putCtx, u)
			m.metrics.ImageUploaded(string(m.active.Kind()), err)
			if err != nil {
				errs[i] = err
				return nil
			}
			locators[i] = loc
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var firstErr error
	for _, err := range errs {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	ctxErr := ctx.Err()
	if failed == 0 && ctxErr == nil {
		return locators, nil
	}

	var stored []string
	for _, loc := range locators {
		if loc != "" {
			stored = append(stored, loc)
		}
	}
	m.logger.Warn("Upload batch aborted, removing stored images",
		zap.Int("requested", len(uploads)),
		zap.Int("failed", failed),
		zap.Int("to_cleanup", len(stored)),
		zap.Error(errors.Join(firstErr, ctxErr)),
	)
	span.RecordError(errors.Join(firstErr, ctxErr))
	if len(stored) > 0 {
		m.RemoveAll(putCtx, stored)
	}

	if ctxErr != nil {
		return nil, fmt.Errorf("image upload aborted: %w", ctxErr)
	}
	return nil, fmt.Errorf("%w: %d of %d uploads failed: %v", domain.ErrUpstreamStorage, failed, len(uploads), firstErr)
}

// RemoveAll deletes the bytes behind each locator, in parallel, best-effort.
// Outcomes are returned in input order; nothing here fails the caller.
func (m *Manager) RemoveAll(ctx context.Context, locators []string) []DeleteOutcome {
	if len(locators) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "AssetManager.RemoveAll")
	defer span.End()
	span.SetAttributes(attribute.Int("images.count", len(locators)))

	delCtx := context.WithoutCancel(ctx)
	outcomes := make([]DeleteOutcome, len(locators))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, loc := range locators {
		ref := m.classifier.Classify(loc)
		outcomes[i] = DeleteOutcome{Locator: loc, Kind: ref.Kind}

		backend, ok := m.backends[ref.Kind]
		if ref.Kind == KindUnknown || !ok {
			outcomes[i].Skipped = true
			m.logger.Warn("Skipping image deletion, no backend owns locator",
				zap.String("locator", loc), zap.String("kind", string(ref.Kind)))
			continue
		}

		g.Go(func() error {
			err := backend.Delete(delCtx, ref.Key)
			m.metrics.ImageDeleted(string(ref.Kind), err)
			if err != nil {
				m.logger.Warn("Image deletion failed",
					zap.String("locator", loc), zap.String("kind", string(ref.Kind)), zap.Error(err))
				outcomes[i].Err = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Reconcile applies an image edit. Only locators present in current are
// removed; others in toDelete are ignored. New uploads happen first, and an
// upload failure returns before any deletion. The final list is current minus
// removals, followed by the new locators, regardless of delete outcomes.
func (m *Manager) Reconcile(ctx context.Context, current, toDelete []string, uploads []Upload) (Reconciliation, error) {
	ctx, span := tracer.Start(ctx, "AssetManager.Reconcile")
	defer span.End()

	kept, removed := Partition(current, toDelete)

	var added []string
	if len(uploads) > 0 {
		var err error
		added, err = m.UploadAll(ctx, uploads)
		if err != nil {
			return Reconciliation{}, err
		}
	}

	images := make([]string, 0, len(kept)+len(added))
	images = append(images, kept...)
	images = append(images, added...)

	return Reconciliation{
		Images:  images,
		Added:   added,
		Removed: m.RemoveAll(ctx, removed),
	}, nil
}

// Partition splits current into the locators that survive toDelete and the
// distinct ones that are removed, both in original order.
func Partition(current, toDelete []string) (kept, removed []string) {
	drop := make(map[string]struct{}, len(toDelete))
	for _, loc := range toDelete {
		drop[loc] = struct{}{}
	}
	seen := make(map[string]struct{})
	kept = make([]string, 0, len(current))
	for _, loc := range current {
		if _, ok := drop[loc]; !ok {
			kept = append(kept, loc)
			continue
		}
		if _, dup := seen[loc]; !dup {
			seen[loc] = struct{}{}
			removed = append(removed, loc)
		}
	}
	return kept, removed
}
