package fm

import (
	"context"
	"fmt"
	"sync"
)

// Catalog is the persistent store of font records. Implementations must make
// InsertIfAbsent and SetActivated atomic per identity.
type Catalog interface {
	// InsertIfAbsent stores rec with activated=false unless its identity
	// already exists. inserted reports whether anything was written.
	InsertIfAbsent(ctx context.Context, rec FontRecord) (inserted bool, err error)

	// InsertMany applies InsertIfAbsent to every record and reports, per
	// record, whether it was written. Durable backends commit the batch in
	// one write. An invalid record fails the batch before anything is stored.
	InsertMany(ctx context.Context, recs []FontRecord) (inserted []bool, err error)

	// ListAll returns every record ordered by family, then subfamily
	ListAll(ctx context.Context) ([]FontRecord, error)

	// Get returns the record for identity or ErrNotFound
	Get(ctx context.Context, identity string) (FontRecord, error)

	// SetActivated overwrites the activation flag. Callers pair it with a
	// successful bridge call.
	SetActivated(ctx context.Context, identity string, activated bool) error

	// ClearAll deletes every record
	ClearAll(ctx context.Context) error
}

// PrepareInsert validates rec and normalizes it for storage. Catalog
// implementations call it before writing a new record.
func PrepareInsert(rec FontRecord) (FontRecord, error) {
	rec = rec.withDefaults()
	rec.Activated = false
	if err := rec.Validate(); err != nil {
		return FontRecord{}, fmt.Errorf("invalid font record: %w", err)
	}
	return rec, nil
}

// MemoryCatalog keeps records in a map. An optional persist hook runs after
// every mutation (once per InsertMany batch) while the lock is held; if it
// fails the mutation is undone.
type MemoryCatalog struct {
	mu      sync.Mutex
	records map[string]FontRecord
	persist func(records []FontRecord) error
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{records: make(map[string]FontRecord)}
}

func (c *MemoryCatalog) InsertIfAbsent(_ context.Context, rec FontRecord) (bool, error) {
	rec, err := PrepareInsert(rec)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[rec.Identity]; exists {
		return false, nil
	}
	c.records[rec.Identity] = rec
	if err := c.save(); err != nil {
		delete(c.records, rec.Identity)
		return false, err
	}
	return true, nil
}

func (c *MemoryCatalog) InsertMany(_ context.Context, recs []FontRecord) ([]bool, error) {
	prepared := make([]FontRecord, len(recs))
	for i, rec := range recs {
		p, err := PrepareInsert(rec)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inserted := make([]bool, len(prepared))
	var added []string
	for i, rec := range prepared {
		if _, exists := c.records[rec.Identity]; exists {
			continue
		}
		c.records[rec.Identity] = rec
		added = append(added, rec.Identity)
		inserted[i] = true
	}
	if len(added) == 0 {
		return inserted, nil
	}
	if err := c.save(); err != nil {
		for _, id := range added {
			delete(c.records, id)
		}
		return nil, err
	}
	return inserted, nil
}

func (c *MemoryCatalog) ListAll(_ context.Context) ([]FontRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(), nil
}

func (c *MemoryCatalog) Get(_ context.Context, identity string) (FontRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[identity]
	if !ok {
		return FontRecord{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	return rec, nil
}

func (c *MemoryCatalog) SetActivated(_ context.Context, identity string, activated bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[identity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	prev := rec
	rec.Activated = activated
	c.records[identity] = rec
	if err := c.save(); err != nil {
		c.records[identity] = prev
		return err
	}
	return nil
}

func (c *MemoryCatalog) ClearAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.records
	c.records = make(map[string]FontRecord)
	if err := c.save(); err != nil {
		c.records = prev
		return err
	}
	return nil
}

// Len returns the number of stored records.
func (c *MemoryCatalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *MemoryCatalog) snapshot() []FontRecord {
	out := make([]FontRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	SortRecords(out)
	return out
}

func (c *MemoryCatalog) save() error {
	if c.persist == nil {
		return nil
	}
	if err := c.persist(c.snapshot()); err != nil {
		return fmt.Errorf("persisting catalog: %w", err)
	}
	return nil
}
