// Package simulator implements the Simulator Core: construction of the DB
// Memory Store plus a parallel set of externally-visible buffers, and the
// background synchronizer that bridges the two under concurrent access
// (spec.md §4.4).
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
	"github.com/AntDeM/S7-DB-Simulator/internal/s7server"
	"github.com/AntDeM/S7-DB-Simulator/internal/store"
)

const (
	// DefaultSyncInterval is the synchronizer tick period when Config.SyncInterval
	// is left zero, per spec.md §4.4.
	DefaultSyncInterval = 20 * time.Millisecond
	minSyncInterval     = 10 * time.Millisecond
	maxSyncInterval     = 5 * time.Second

	// DefaultPort is the S7 wire port, per spec.md §6.
	DefaultPort = 102
)

// Config controls simulator construction.
type Config struct {
	// SyncInterval is the synchronizer tick period; zero selects
	// DefaultSyncInterval. Must fall within [10ms, 5s] if non-zero.
	SyncInterval time.Duration
	// Port is the TCP port the server library is started on. Zero selects
	// DefaultPort.
	Port int
}

// Simulator owns the DB Memory Store, the per-DB external buffers handed
// to the S7 server library, and the background synchronizer that bridges
// them (spec.md §4.4).
type Simulator struct {
	store    *store.Store
	server   s7server.Server
	log      zerolog.Logger
	interval time.Duration
	port     int

	external   map[uint32][]byte
	checksums  map[uint32]uint64
	clientsMu  sync.Mutex
	numClients int

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New constructs a Simulator: validates and sizes each DB, allocates and
// zeroes internal buffers, applies initial field values, allocates a
// matching external buffer per DB, registers each with srv, and returns
// ready-to-Start. It does not start the synchronizer or the server — call
// Start for that (spec.md §4.4's construction sequence, split so tests can
// inspect a constructed-but-not-running simulator).
func New(defs []plc.DBDef, srv s7server.Server, log zerolog.Logger, cfg Config) (*Simulator, error) {
	interval := cfg.SyncInterval
	if interval == 0 {
		interval = DefaultSyncInterval
	}
	if interval < minSyncInterval || interval > maxSyncInterval {
		return nil, errors.Errorf("sync interval %s out of range [%s, %s]", interval, minSyncInterval, maxSyncInterval)
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	st, err := store.New(defs, log)
	if err != nil {
		return nil, errors.Annotate(err, "constructing db memory store")
	}

	sim := &Simulator{
		store:     st,
		server:    srv,
		log:       log,
		interval:  interval,
		port:      port,
		external:  make(map[uint32][]byte, len(defs)),
		checksums: make(map[uint32]uint64, len(defs)),
	}

	for _, db := range defs {
		internal, ok := st.RawBuffer(db.Number)
		if !ok {
			return nil, errors.Errorf("db %d missing internal buffer after construction", db.Number)
		}
		external := make([]byte, len(internal))
		copy(external, internal)
		sim.external[db.Number] = external
		sim.checksums[db.Number] = xxhash.Sum64(external)

		if err := srv.RegisterArea(db.Number, external); err != nil {
			return nil, errors.Annotatef(err, "registering external area for db %d", db.Number)
		}
	}

	srv.SetEventsCallback(sim.handleServerEvent)

	return sim, nil
}

// Store exposes the underlying DB Memory Store for the script engine and
// inspector-style callers.
func (s *Simulator) Store() *store.Store { return s.store }

// Start starts the background synchronizer and the S7 server. ctx governs
// the server's startup only; the synchronizer runs until Stop is called.
func (s *Simulator) Start(ctx context.Context) error {
	if err := s.server.Start(ctx, s.port); err != nil {
		return serverStartFailed(s.port, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	s.group = group

	group.Go(func() error {
		s.runSynchronizer(groupCtx)
		return nil
	})

	return nil
}

// Stop sets the running flag, waits at least one synchronizer period plus
// a small margin, then stops the server (spec.md §4.4's "Stop" semantics).
func (s *Simulator) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		_ = s.group.Wait()
	}
	time.Sleep(s.interval + s.interval/4)
	return s.server.Stop()
}

func (s *Simulator) runSynchronizer(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncTick()
		}
	}
}

// syncTick performs one non-blocking synchronizer pass, per spec.md §4.4:
// attempt a non-blocking acquire; on success, for every DB compare the
// external buffer's checksum against the last recorded value and copy in
// whichever direction reflects the more recent write.
func (s *Simulator) syncTick() {
	if !s.store.TryLock() {
		return
	}
	defer s.store.Unlock()

	for dbNumber, external := range s.external {
		sum := xxhash.Sum64(external)
		if sum != s.checksums[dbNumber] {
			internal, ok := s.store.RawBuffer(dbNumber)
			if !ok {
				continue
			}
			copy(internal, external)
			s.checksums[dbNumber] = sum
			s.log.Debug().Uint32("db", dbNumber).Msg("synchronizer: external write observed, copied external->internal")
			continue
		}

		internal, ok := s.store.RawBuffer(dbNumber)
		if !ok {
			continue
		}
		copy(external, internal)
		s.checksums[dbNumber] = xxhash.Sum64(external)
	}
}

func (s *Simulator) handleServerEvent(ev s7server.Event) {
	switch ev.Kind {
	case s7server.EventClientConnected:
		s.clientsMu.Lock()
		s.numClients++
		n := s.numClients
		s.clientsMu.Unlock()
		s.log.Info().Int("clients", n).Msg("s7 client connected")
	case s7server.EventClientDisconnected:
		s.clientsMu.Lock()
		s.numClients--
		n := s.numClients
		s.clientsMu.Unlock()
		s.log.Info().Int("clients", n).Msg("s7 client disconnected")
	case s7server.EventAreaWritten:
		s.log.Debug().Uint32("db", ev.DBNumber).Msg("external write event")
	}
}

// ClientCount returns the number of currently tracked connected clients.
func (s *Simulator) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return s.numClients
}
