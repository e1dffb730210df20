package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/xid"
)

// Record is implemented by the pointer type of every entity kept in a
// Collection.
type Record[T any] interface {
	*T
	RecordID() domain.ID
	Created() domain.Timestamp
	Stamp(id domain.ID, created, updated domain.Timestamp)
}

// Collection is a JSON array stored under one key. Every mutation rewrites
// the whole array; mu serialises read-modify-write within the process, and
// across processes the last writer wins.
type Collection[T any, P Record[T]] struct {
	store Store
	key   string
	now   func() time.Time
	mu    sync.Mutex
}

func NewCollection[T any, P Record[T]](store Store, key string) *Collection[T, P] {
	return &Collection[T, P]{
		store: store,
		key:   key,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (c *Collection[T, P]) Key() string {
	return c.key
}

// List returns every record accepted by keep (all records when keep is nil).
// Malformed JSON under the key reads as an empty collection.
func (c *Collection[T, P]) List(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if keep == nil {
		return items, nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *Collection[T, P]) Get(ctx context.Context, id domain.ID) (T, error) {
	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if P(&item).RecordID() == id {
			return item, nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Create appends record, assigning an id when it has none and stamping
// created_at/updated_at.
func (c *Collection[T, P]) Create(ctx context.Context, record T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return record, err
	}

	now := c.now()
	id := P(&record).RecordID()
	if id == "" {
		id = domain.ID(xid.New(now))
	}
	P(&record).Stamp(id, domain.At(now), domain.At(now))

	items = append(items, record)
	if err := c.save(ctx, items); err != nil {
		return record, err
	}
	return record, nil
}

// Update replaces the record with the given id, keeping its id and
// created_at. The collection length never changes.
func (c *Collection[T, P]) Update(ctx context.Context, id domain.ID, record T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return record, err
	}

	for i := range items {
		existing := P(&items[i])
		if existing.RecordID() != id {
			continue
		}
		P(&record).Stamp(id, existing.Created(), domain.At(c.now()))
		items[i] = record
		if err := c.save(ctx, items); err != nil {
			return record, err
		}
		return record, nil
	}
	return record, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Modify applies fn to the record with the given id under the collection
// lock, so read-modify-write of a single field cannot interleave.
func (c *Collection[T, P]) Modify(ctx context.Context, id domain.ID, fn func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for i := range items {
		current := P(&items[i])
		if current.RecordID() != id {
			continue
		}
		created := current.Created()
		if err := fn(&items[i]); err != nil {
			return zero, err
		}
		P(&items[i]).Stamp(id, created, domain.At(c.now()))
		if err := c.save(ctx, items); err != nil {
			return zero, err
		}
		return items[i], nil
	}
	return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

func (c *Collection[T, P]) Delete(ctx context.Context, id domain.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if P(&item).RecordID() != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
	}
	return c.save(ctx, kept)
}

// Replace overwrites the collection, used to write through fresh API data.
func (c *Collection[T, P]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	return c.save(ctx, items)
}

// Seed writes items only when the collection is empty and reports whether
// it did.
func (c *Collection[T, P]) Seed(ctx context.Context, items []T) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	return true, c.save(ctx, items)
}

// Merge upserts items by id and leaves records the caller did not mention
// untouched. Items without an id are skipped.
func (c *Collection[T, P]) Merge(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.load(ctx)
	if err != nil {
		return err
	}
	index := make(map[domain.ID]int, len(existing))
	for i := range existing {
		index[P(&existing[i]).RecordID()] = i
	}
	for _, item := range items {
		id := P(&item).RecordID()
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			existing[i] = item
			continue
		}
		index[id] = len(existing)
		existing = append(existing, item)
	}
	return c.save(ctx, existing)
}

func (c *Collection[T, P]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}
	items := []T{}
	if !ok || domain.IsNullJSON(raw) {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("[localstore] WARN: %s holds malformed JSON, treating as empty: %v", c.key, err)
		return []T{}, nil
	}
	return items, nil
}

func (c *Collection[T, P]) save(ctx context.Context, items []T) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, payload); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}
