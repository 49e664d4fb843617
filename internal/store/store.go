// Package store owns the enrolled template population. It is the only
// mutable shared state in the service: mutation goes through Add and Revoke,
// reads go through point-in-time snapshots.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/high-horse/faceid-server/internal/faceid"
	"github.com/high-horse/faceid-server/internal/journal"
)

// Store keeps templates in insertion order and enforces contact uniqueness
// across every status. All exported methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates *linkedhashmap.Map // template id -> faceid.Template
	byContact map[string]string  // normalized contact -> template id
	dim       int
	clock     clockwork.Clock
	journal   *journal.Journal
}

type record struct {
	Kind       string           `cbor:"kind"` // "created" or "revoked"
	Template   *faceid.Template `cbor:"template,omitempty"`
	TemplateID string           `cbor:"templateId,omitempty"`
}

// Open builds a store with the given fixed encoding dimensionality, replaying
// jnl if it is non-nil. clock may be nil for the real clock.
func Open(dim int, jnl *journal.Journal, clock clockwork.Clock) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("store: dimensionality must be positive, got %d", dim)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{
		templates: linkedhashmap.New(),
		byContact: make(map[string]string),
		dim:       dim,
		clock:     clock,
		journal:   jnl,
	}
	err := jnl.Replay(func(raw []byte) error {
		var rec record
		if err := unmarshalRecord(raw, &rec); err != nil {
			return err
		}
		switch rec.Kind {
		case "created":
			if rec.Template == nil {
				return fmt.Errorf("store: created record without template")
			}
			t := *rec.Template
			s.templates.Put(t.ID, t)
			s.byContact[contactKey(t.Contact)] = t.ID
		case "revoked":
			if v, ok := s.templates.Get(rec.TemplateID); ok {
				t := v.(faceid.Template)
				t.Status = faceid.StatusRevoked
				s.templates.Put(t.ID, t)
			}
		default:
			return fmt.Errorf("store: unknown record kind %q", rec.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Dim reports the fixed encoding dimensionality of the population.
func (s *Store) Dim() int { return s.dim }

// Add enrolls a new active template. The conditional insert is atomic:
// under concurrent calls with the same contact key at most one succeeds and
// the rest observe faceid.ErrDuplicateContact.
func (s *Store) Add(name, contact string, encoding []float64) (faceid.Template, error) {
	if len(encoding) != s.dim {
		return faceid.Template{}, fmt.Errorf("%w: got %d, store holds %d-dimensional encodings",
			faceid.ErrEncodingShape, len(encoding), s.dim)
	}
	key := contactKey(contact)
	t := faceid.Template{
		ID:        uuid.NewString(),
		Name:      name,
		Contact:   contact,
		Encoding:  append([]float64(nil), encoding...),
		Status:    faceid.StatusActive,
		CreatedAt: s.clock.Now().UTC(),
	}

	// Reserve the contact key first so the uniqueness check stays atomic,
	// then journal outside the lock: unrelated keys never wait on disk.
	s.mu.Lock()
	if _, exists := s.byContact[key]; exists {
		s.mu.Unlock()
		return faceid.Template{}, fmt.Errorf("%w: %s", faceid.ErrDuplicateContact, contact)
	}
	s.byContact[key] = t.ID
	s.mu.Unlock()

	if err := s.journal.Append(record{Kind: "created", Template: &t}); err != nil {
		s.mu.Lock()
		delete(s.byContact, key)
		s.mu.Unlock()
		return faceid.Template{}, fmt.Errorf("store: persist template: %w", err)
	}

	s.mu.Lock()
	s.templates.Put(t.ID, t)
	s.mu.Unlock()
	return t, nil
}

// Revoke marks a template inactive. It stops appearing in future snapshots;
// snapshots already taken are unaffected.
func (s *Store) Revoke(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.templates.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", faceid.ErrNotFound, id)
	}
	t := v.(faceid.Template)
	if t.Status == faceid.StatusRevoked {
		return nil
	}
	if err := s.journal.Append(record{Kind: "revoked", TemplateID: id}); err != nil {
		return fmt.Errorf("store: persist revocation: %w", err)
	}
	t.Status = faceid.StatusRevoked
	s.templates.Put(id, t)
	return nil
}

// Get returns a copy of the template with the given id.
func (s *Store) Get(id string) (faceid.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.templates.Get(id)
	if !ok {
		return faceid.Template{}, fmt.Errorf("%w: %s", faceid.ErrNotFound, id)
	}
	return v.(faceid.Template), nil
}

// Snapshot returns a point-in-time copy of the active templates in
// insertion order. Later Add and Revoke calls do not affect it.
func (s *Store) Snapshot() []faceid.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make([]faceid.Template, 0, s.templates.Size())
	it := s.templates.Iterator()
	for it.Next() {
		t := it.Value().(faceid.Template)
		if t.Active() {
			snap = append(snap, t)
		}
	}
	return snap
}

// Counts reports the total enrolled and currently active template counts.
func (s *Store) Counts() (total, active int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total = s.templates.Size()
	it := s.templates.Iterator()
	for it.Next() {
		if it.Value().(faceid.Template).Active() {
			active++
		}
	}
	return total, active
}

func contactKey(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

func unmarshalRecord(raw []byte, rec *record) error {
	if err := cbor.Unmarshal(raw, rec); err != nil {
		return fmt.Errorf("store: decode record: %w", err)
	}
	return nil
}
