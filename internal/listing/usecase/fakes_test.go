package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/storage/local"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/mock"
)

var errInjected = errors.New("injected failure")

// memRepo evaluates compiled predicates in memory, the same way the Mongo
// adapter does server-side.
type memRepo struct {
	mu         sync.Mutex
	seq        int
	listings   map[string]*domain.Listing
	failCreate error
	failUpdate error
	failDelete error
}

func newMemRepo() *memRepo {
	return &memRepo{listings: map[string]*domain.Listing{}}
}

func (r *memRepo) Create(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.seq++
	l.ID = fmt.Sprintf("listing-%03d", r.seq)
	r.listings[l.ID] = l.Clone()
	return nil
}

func (r *memRepo) Update(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.listings[l.ID]; !ok {
		return domain.ErrListingNotFound
	}
	r.listings[l.ID] = l.Clone()
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	if _, ok := r.listings[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(r.listings, id)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return l.Clone(), nil
}

func (r *memRepo) Find(_ context.Context, pred domain.Predicate, order domain.SortSpec, limit int) ([]*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Listing
	for _, l := range r.listings {
		if pred.Matches(l) {
			out = append(out, l.Clone())
		}
	}
	order.Apply(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) get(id string) *domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listings[id].Clone()
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listings)
}

// seed stores a listing as-is, bypassing the usecase.
func (r *memRepo) seed(l *domain.Listing) *domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	l.ID = fmt.Sprintf("listing-%03d", r.seq)
	l.Locate()
	r.listings[l.ID] = l.Clone()
	return l
}

type fakeDirectory struct {
	owners map[string]*domain.OwnerSummary
	err    error
	calls  int
}

func (d *fakeDirectory) GetSummaries(_ context.Context, ids []string) (map[string]*domain.OwnerSummary, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]*domain.OwnerSummary, len(ids))
	for _, id := range ids {
		if o, ok := d.owners[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

type fakeCache struct {
	mu          sync.Mutex
	listings    map[string]*domain.Listing
	searches    map[string][]*domain.ListingView
	searchHits  int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{listings: map[string]*domain.Listing{}, searches: map[string][]*domain.ListingView{}}
}

func (c *fakeCache) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[id]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return l.Clone(), nil
}

func (c *fakeCache) SetListing(_ context.Context, l *domain.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[l.ID] = l.Clone()
	return nil
}

func (c *fakeCache) DeleteListing(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, id)
	return nil
}

func (c *fakeCache) GetSearch(_ context.Context, key string) ([]*domain.ListingView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.searches[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	c.searchHits++
	return v, nil
}

func (c *fakeCache) SetSearch(_ context.Context, key string, views []*domain.ListingView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches[key] = views
	return nil
}

func (c *fakeCache) InvalidateSearches(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = map[string][]*domain.ListingView{}
	c.invalidated++
	return nil
}

type publishedEvent struct {
	Subject string
	Data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

func (p *recordingPublisher) orphans() []ImageOrphanedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ImageOrphanedEvent
	for _, e := range p.events {
		if ev, ok := e.Data.(ImageOrphanedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendListingCreatedEmail(to, title string) error {
	args := m.Called(to, title)
	return args.Error(0)
}

// flakyBackend wraps a real backend with failure injection and call counting.
type flakyBackend struct {
	asset.Backend

	mu      sync.Mutex
	failPut map[string]bool // by upload filename
	failDel map[string]bool // by key
	puts    int
	deletes []string
}

func (b *flakyBackend) Put(ctx context.Context, u asset.Upload) (string, error) {
	b.mu.Lock()
	b.puts++
	fail := b.failPut[u.Filename]
	b.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return b.Backend.Put(ctx, u)
}

func (b *flakyBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	b.deletes = append(b.deletes, key)
	fail := b.failDel[key]
	b.mu.Unlock()
	if fail {
		return errInjected
	}
	return b.Backend.Delete(ctx, key)
}

func (b *flakyBackend) calls() (puts, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts, len(b.deletes)
}

// remoteBackend stands in for the object store; it only records deletions.
type remoteBackend struct {
	mu      sync.Mutex
	deleted []string
}

func (r *remoteBackend) Kind() asset.Kind { return asset.KindRemote }

func (r *remoteBackend) Put(context.Context, asset.Upload) (string, error) {
	return "", errors.New("remote backend is not active")
}

func (r *remoteBackend) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, key)
	return nil
}

const (
	uploadsPrefix = "/uploads/"
	remoteBase    = "https://minio.example.com/real-estate/properties/"
)

type harness struct {
	uc        *ListingUsecase
	repo      *memRepo
	fs        billy.Filesystem
	local     *flakyBackend
	remote    *remoteBackend
	cache     *fakeCache
	events    *recordingPublisher
	notifier  *MockNotifier
	directory *fakeDirectory
}

func newHarness() *harness {
	log := logger.NewNop()
	fs := memfs.New()
	h := &harness{
		repo:     newMemRepo(),
		fs:       fs,
		local:    &flakyBackend{Backend: local.NewStorage(fs, uploadsPrefix, log), failPut: map[string]bool{}, failDel: map[string]bool{}},
		remote:   &remoteBackend{},
		cache:    newFakeCache(),
		events:   &recordingPublisher{},
		notifier: &MockNotifier{},
		directory: &fakeDirectory{owners: map[string]*domain.OwnerSummary{
			"agent-1": {ID: "agent-1", Name: "Alice Agent", Email: "alice@example.com"},
			"agent-2": {ID: "agent-2", Name: "Bob Broker", Email: "bob@example.com"},
		}},
	}
	classifier := asset.Classifier{LocalPrefix: uploadsPrefix, Bucket: "real-estate", ObjectPrefix: "properties"}
	images := asset.NewManager(h.local, classifier, log, asset.WithBackend(h.remote), asset.WithConcurrency(2))
	h.uc = NewListingUsecase(h.repo, h.directory, images, log,
		WithCache(h.cache),
		WithEvents(h.events),
		WithNotifier(h.notifier),
		WithMaxImages(5),
	)
	return h
}

// storeLocal writes an image directly and returns its locator.
func (h *harness) storeLocal(name string) string {
	loc, err := h.local.Backend.Put(context.Background(), asset.Upload{Filename: name, Data: []byte(name)})
	if err != nil {
		panic(err)
	}
	return loc
}

func (h *harness) exists(locator string) bool {
	_, err := h.fs.Stat(strings.TrimPrefix(locator, uploadsPrefix))
	return err == nil
}

func (h *harness) storedFiles() int {
	entries, err := h.fs.ReadDir("/")
	if err != nil {
		return 0
	}
	return len(entries)
}

func keyOf(locator string) string { return strings.TrimPrefix(locator, uploadsPrefix) }

func files(names ...string) []asset.Upload {
	out := make([]asset.Upload, 0, len(names))
	for _, n := range names {
		out = append(out, asset.Upload{Filename: n, ContentType: "image/jpeg", Data: []byte(n)})
	}
	return out
}

var (
	agent1 = domain.Actor{ID: "agent-1", Role: domain.RoleAgent}
	agent2 = domain.Actor{ID: "agent-2", Role: domain.RoleAgent}
	admin  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	buyer  = domain.Actor{ID: "user-1", Role: domain.RoleUser}
)

func validInput() CreateListingInput {
	return CreateListingInput{
		Title:        "Sunny loft",
		Description:  "Two rooms near the park",
		Address:      "12 Elm St",
		City:         "Springfield",
		State:        "IL",
		ZipCode:      "62701",
		Price:        250000,
		Bedrooms:     2,
		Bathrooms:    1,
		Sqft:         900,
		Latitude:     39.7817,
		Longitude:    -89.6501,
		PropertyType: domain.PropertyTypeApartment,
		Status:       domain.StatusForSale,
	}
}
