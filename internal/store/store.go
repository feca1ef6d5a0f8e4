// Package store implements the DB Memory Store: a mapping from DB number to
// a fixed-size mutable byte buffer, with typed field reads/writes at an
// offset (and bit, for BOOL). See SPEC_FULL.md §4.2 for the reentrancy
// resolution this package follows.
package store

import (
	"sync"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/AntDeM/S7-DB-Simulator/internal/codec"
	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
)

// ErrString is the sentinel returned by Display on any read failure,
// matching spec.md §4.2/§7. It is the only place the sentinel appears —
// Read itself returns a typed error.
const ErrString = "<err>"

// Store owns one byte buffer per DB number. A single sync.Mutex guards all
// buffers; every public accessor except RawBuffer acquires it, and Read and
// Write never call each other while holding it (see SPEC_FULL.md §4.2).
type Store struct {
	mu      sync.Mutex
	buffers map[uint32][]byte
	log     zerolog.Logger
}

// New allocates and zeroes a buffer per DB definition (sized via
// plc.SizeOf), then applies each field's initial Value, if present.
func New(defs []plc.DBDef, log zerolog.Logger) (*Store, error) {
	s := &Store{
		buffers: make(map[uint32][]byte, len(defs)),
		log:     log,
	}
	for _, db := range defs {
		size := plc.SizeOf(db.Fields)
		s.buffers[db.Number] = make([]byte, size)
	}
	for _, db := range defs {
		for _, f := range db.Fields {
			if f.Value == nil {
				continue
			}
			if err := s.Write(db.Number, f.Offset, f.Type, *f.Value, f.Bit); err != nil {
				return nil, errors.Annotatef(err, "applying initial value for db %d field %q", db.Number, f.Name)
			}
		}
	}
	return s, nil
}

// Buffer returns a defensive copy of the current contents of a DB's buffer.
// The synchronizer does not use it; it works on RawBuffer under TryLock.
func (s *Store) Buffer(db uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[db]
	if !ok {
		return nil, errors.Errorf("unknown db %d", db)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// ReplaceBuffer overwrites a DB's buffer wholesale under the store's lock.
// The synchronizer's external→internal copy goes through RawBuffer instead.
func (s *Store) ReplaceBuffer(db uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[db]
	if !ok {
		return errors.Errorf("unknown db %d", db)
	}
	if len(data) != len(buf) {
		return errors.Errorf("db %d: buffer length mismatch: have %d, got %d", db, len(buf), len(data))
	}
	copy(buf, data)
	return nil
}

// TryLock attempts a non-blocking acquire of the store's mutex, for the
// synchronizer's skip-on-busy tick semantics (spec.md §4.4). Callers that
// succeed MUST call Unlock when done, and must not call Read/Write (which
// acquire the same mutex) while holding it.
func (s *Store) TryLock() bool { return s.mu.TryLock() }

// Unlock releases a lock acquired via TryLock.
func (s *Store) Unlock() { s.mu.Unlock() }

// RawBuffer returns the live internal buffer slice for db, with no locking
// of its own. Callers MUST already hold the store's lock (via TryLock) for
// the duration they read or write through the returned slice — this is the
// synchronizer's direct-mutation path over §4.4's "holding the lock, for
// each DB" pass, which must not re-enter Read/Write while the lock is held.
func (s *Store) RawBuffer(db uint32) ([]byte, bool) {
	buf, ok := s.buffers[db]
	return buf, ok
}

// Read returns the decoded value at (db, offset, type[, bit]). On any
// failure it returns a typed error and logs a diagnostic; callers at the
// display boundary should substitute ErrString for a failed Read, per
// spec.md §4.2/§7.
func (s *Store) Read(db uint32, offset int, t plc.TypeTag, bit *int) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(db, offset, t, bit)
}

func (s *Store) readLocked(db uint32, offset int, t plc.TypeTag, bit *int) (interface{}, error) {
	buf, ok := s.buffers[db]
	if !ok {
		err := errors.Errorf("unknown db %d", db)
		s.log.Debug().Uint32("db", db).Err(err).Msg("store read failed")
		return nil, err
	}
	if t.Kind == plc.KindBool && bit != nil {
		if offset < 0 || offset >= len(buf) || *bit < 0 || *bit > 7 {
			err := bitOutOfRangeErr(db, offset, *bit, len(buf))
			s.log.Debug().Uint32("db", db).Int("offset", offset).Int("bit", *bit).Err(err).Msg("store read failed")
			return nil, err
		}
		return (buf[offset]>>uint(*bit))&0x01 != 0, nil
	}
	size := t.Size()
	if offset < 0 || offset+size > len(buf) {
		err := outOfRangeErr(db, offset, size, len(buf))
		s.log.Debug().Uint32("db", db).Int("offset", offset).Err(err).Msg("store read failed")
		return nil, err
	}
	v, err := codec.Unpack(t, buf[offset:offset+size])
	if err != nil {
		s.log.Debug().Uint32("db", db).Int("offset", offset).Err(err).Msg("store read failed")
		return nil, err
	}
	return v, nil
}

// Write encodes value and copies it into the buffer at (db, offset[, bit]).
// For BOOL with bit, the single target bit is set or cleared in place
// without disturbing the others and without calling Read. Out-of-range
// writes are logged and dropped rather than treated as fatal.
func (s *Store) Write(db uint32, offset int, t plc.TypeTag, value interface{}, bit *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(db, offset, t, value, bit)
}

func (s *Store) writeLocked(db uint32, offset int, t plc.TypeTag, value interface{}, bit *int) error {
	buf, ok := s.buffers[db]
	if !ok {
		err := errors.Errorf("unknown db %d", db)
		s.log.Warn().Uint32("db", db).Err(err).Msg("store write dropped")
		return err
	}
	if t.Kind == plc.KindBool && bit != nil {
		if offset < 0 || offset >= len(buf) || *bit < 0 || *bit > 7 {
			err := bitOutOfRangeErr(db, offset, *bit, len(buf))
			s.log.Warn().Uint32("db", db).Int("offset", offset).Int("bit", *bit).Err(err).Msg("store write dropped")
			return err
		}
		raw, err := codec.Pack(t, value)
		if err != nil {
			s.log.Warn().Uint32("db", db).Int("offset", offset).Err(err).Msg("store write dropped")
			return err
		}
		mask := byte(1) << uint(*bit)
		if raw[0]&0x01 != 0 {
			buf[offset] |= mask
		} else {
			buf[offset] &^= mask
		}
		return nil
	}

	raw, err := codec.Pack(t, value)
	if err != nil {
		s.log.Warn().Uint32("db", db).Int("offset", offset).Err(err).Msg("store write dropped")
		return err
	}
	size := len(raw)
	if offset < 0 || offset+size > len(buf) {
		err := outOfRangeErr(db, offset, size, len(buf))
		s.log.Warn().Uint32("db", db).Int("offset", offset).Err(err).Msg("store write dropped")
		return err
	}
	copy(buf[offset:offset+size], raw)
	return nil
}

// Display reads a value the way a human-facing surface (CLI, dashboard)
// should: ErrString on any failure, the decoded value otherwise. This is
// the one place the "<err>" sentinel from spec.md §4.2/§7 is materialized.
func (s *Store) Display(db uint32, offset int, t plc.TypeTag, bit *int) interface{} {
	v, err := s.Read(db, offset, t, bit)
	if err != nil {
		return ErrString
	}
	return v
}

// DBNumbers returns the set of DB numbers this store owns, in no particular
// order.
func (s *Store) DBNumbers() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, 0, len(s.buffers))
	for n := range s.buffers {
		out = append(out, n)
	}
	return out
}
