package sessions

import (
	"context"
	"sync"
	"time"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/ctxutil"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

// Store owns live interview sessions. Callers only ever see copies.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Mutate runs fn on a private copy of the session and commits the copy only
	// when fn returns nil. Calls for the same id run one at a time.
	Mutate(ctx context.Context, id string, fn func(s *domain.Session) error) (*domain.Session, error)
	Delete(ctx context.Context, id string)
	Len() int
	StartJanitor(ctx context.Context)
}

type Config struct {
	// TTL is how long a session may sit idle before the janitor drops it.
	TTL             time.Duration
	JanitorInterval time.Duration
	// OnEvict receives the sessions removed by one janitor sweep.
	OnEvict func(evicted []*domain.Session)
}

type entry struct {
	// turn serializes Mutate calls; mu guards the fields below.
	turn sync.Mutex

	mu       sync.RWMutex
	sess     *domain.Session
	lastUsed time.Time
	removed  bool
}

type memoryStore struct {
	log *logger.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	ttl      time.Duration
	interval time.Duration
	onEvict  func(evicted []*domain.Session)
	now      func() time.Time

	janitorOnce sync.Once
}

func NewMemoryStore(log *logger.Logger, cfg Config) Store {
	if log == nil {
		log = logger.NewNop()
	}
	s := &memoryStore{
		log:      log.With("service", "SessionStore"),
		entries:  map[string]*entry{},
		ttl:      cfg.TTL,
		interval: cfg.JanitorInterval,
		onEvict:  cfg.OnEvict,
		now:      time.Now,
	}
	if s.interval <= 0 {
		s.interval = time.Minute
	}
	return s
}

func (s *memoryStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return domain.Errorf(domain.KindMissingParameters, "sessions.create", "session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[sess.ID]; ok {
		return domain.Errorf(domain.KindAlreadyExists, "sessions.create", "session %q already exists", sess.ID)
	}
	s.entries[sess.ID] = &entry{sess: sess.Clone(), lastUsed: s.now()}
	return nil
}

func (s *memoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func notFound(op, id string) error {
	return domain.Errorf(domain.KindNotFound, op, "session %q not found", id)
}

func (s *memoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, notFound("sessions.get", id)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.removed {
		return nil, notFound("sessions.get", id)
	}
	return e.sess.Clone(), nil
}

func (s *memoryStore) Mutate(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	ctx = ctxutil.Default(ctx)
	e, ok := s.lookup(id)
	if !ok {
		return nil, notFound("sessions.mutate", id)
	}

	e.turn.Lock()
	defer e.turn.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	if e.removed {
		e.mu.RUnlock()
		return nil, notFound("sessions.mutate", id)
	}
	work := e.sess.Clone()
	e.mu.RUnlock()

	if err := fn(work); err != nil {
		e.mu.Lock()
		e.lastUsed = s.now()
		e.mu.Unlock()
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, notFound("sessions.mutate", id)
	}
	work.UpdatedAt = s.now().UTC()
	e.sess = work
	e.lastUsed = s.now()
	return work.Clone(), nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartJanitor sweeps idle sessions until ctx is done. A session with a turn
// in flight is never evicted; it is reconsidered on the next sweep.
func (s *memoryStore) StartJanitor(ctx context.Context) {
	if s.ttl <= 0 {
		s.log.Info("Session TTL disabled; janitor not started")
		return
	}
	s.janitorOnce.Do(func() {
		go func() {
			t := time.NewTicker(s.interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					s.sweep()
				}
			}
		}()
	})
}

func (s *memoryStore) sweep() []string {
	cutoff := s.now().Add(-s.ttl)

	s.mu.RLock()
	candidates := make(map[string]*entry)
	for id, e := range s.entries {
		e.mu.RLock()
		idle := e.lastUsed.Before(cutoff)
		e.mu.RUnlock()
		if idle {
			candidates[id] = e
		}
	}
	s.mu.RUnlock()

	var (
		evicted []string
		gone    []*domain.Session
	)
	for id, e := range candidates {
		if !e.turn.TryLock() {
			continue
		}
		e.mu.Lock()
		stillIdle := !e.removed && e.lastUsed.Before(cutoff)
		if stillIdle {
			e.removed = true
			gone = append(gone, e.sess)
		}
		e.mu.Unlock()
		if stillIdle {
			s.mu.Lock()
			if s.entries[id] == e {
				delete(s.entries, id)
			}
			s.mu.Unlock()
			evicted = append(evicted, id)
		}
		e.turn.Unlock()
	}

	if len(evicted) > 0 {
		s.log.Info("Evicted idle sessions", "count", len(evicted), "remaining", s.Len())
		if s.onEvict != nil {
			s.onEvict(gone)
		}
	}
	return evicted
}
