package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var errBackendDown = errors.New("backend down")

// memBackend is an in-memory Backend with per-file failure injection.
type memBackend struct {
	kind   Kind
	prefix string

	mu        sync.Mutex
	seq       int
	objects   map[string][]byte
	failPut   map[string]bool // by upload filename
	failDel   map[string]bool // by key
	deleted   []string
	putCalls  int
	onPut     func(u Upload)
	onPutDone func(u Upload)
}

func newMemBackend(kind Kind, prefix string) *memBackend {
	return &memBackend{
		kind:    kind,
		prefix:  prefix,
		objects: map[string][]byte{},
		failPut: map[string]bool{},
		failDel: map[string]bool{},
	}
}

func (b *memBackend) Kind() Kind { return b.kind }

func (b *memBackend) Put(_ context.Context, u Upload) (string, error) {
	if b.onPut != nil {
		b.onPut(u)
	}
	if b.onPutDone != nil {
		defer b.onPutDone(u)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putCalls++
	if b.failPut[u.Filename] {
		return "", fmt.Errorf("put %s: %w", u.Filename, errBackendDown)
	}
	b.seq++
	key := fmt.Sprintf("%03d-%s", b.seq, u.Filename)
	b.objects[key] = u.Data
	return b.prefix + key, nil
}

func (b *memBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDel[key] {
		return errBackendDown
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBackend) store(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = []byte("existing")
	return b.prefix + key
}

func (b *memBackend) has(locator string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[strings.TrimPrefix(locator, b.prefix)]
	return ok
}

func (b *memBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
