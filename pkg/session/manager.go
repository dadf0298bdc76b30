package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/policylab/internal/logging"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/aretw0/policylab/pkg/ports"
)

// DefaultPrefix is the key prefix of persisted sessions.
const DefaultPrefix = "sim_"

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store  ports.KVStore
	prefix string

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration

	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		m.prefix = prefix
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.KVStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		prefix:  DefaultPrefix,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the simulation id.
// It is not reentrant: fn must not call other Manager methods for the same id.
func (m *Manager) WithLock(ctx context.Context, simulationID string, fn func(context.Context) error) error {
	entry := m.acquire(simulationID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(simulationID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, m.key(simulationID), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"simulation_id", simulationID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create starts a fresh session at step 0 with a copy of initial, replacing any existing one.
func (m *Manager) Create(ctx context.Context, simulationID string, initial domain.State) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		s = m.create(ctx, simulationID, initial)
		return nil
	})
	return s, err
}

// GetOrCreate resumes the persisted session of the simulation, or creates one when
// none exists or the stored record belongs to another simulation.
func (m *Manager) GetOrCreate(ctx context.Context, simulationID string, initial domain.State) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		if existing, ok := m.load(ctx, simulationID); ok && existing.SimulationID == simulationID {
			s = existing
			m.logger.Debug("Session resumed", "simulation_id", simulationID, "step", s.CurrentStep)
			m.emit(ctx, m.hooks.OnSessionStart, domain.EventSessionStart, s, func(e *domain.SessionEvent) {
				e.Resumed = true
			})
			return nil
		}
		s = m.create(ctx, simulationID, initial)
		return nil
	})
	return s, err
}

// Current returns the persisted session, or nil when there is none or it cannot be read.
func (m *Manager) Current(ctx context.Context, simulationID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		s, _ = m.load(ctx, simulationID)
		return nil
	})
	return s, err
}

// Update records a decision: the state is replaced, record is appended and the session
// moves to nextStep, which must be exactly one past the current step.
func (m *Manager) Update(ctx context.Context, simulationID string, newState domain.State, record domain.DecisionRecord, nextStep int) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		current, ok := m.load(ctx, simulationID)
		if !ok {
			return fmt.Errorf("update %s: %w", simulationID, domain.ErrSessionNotFound)
		}
		if nextStep != current.CurrentStep+1 {
			return fmt.Errorf("update %s from step %d to %d: %w",
				simulationID, current.CurrentStep, nextStep, domain.ErrStepOutOfOrder)
		}

		current.State = newState.Clone()
		current.DecisionHistory = append(current.DecisionHistory, record)
		current.CurrentStep = nextStep
		m.save(ctx, current)

		s = current
		m.logger.Debug("Decision recorded",
			"simulation_id", simulationID,
			"step_id", record.StepID,
			"decision_id", record.DecisionID,
		)
		m.emit(ctx, m.hooks.OnDecision, domain.EventDecision, s, func(e *domain.SessionEvent) {
			e.StepID = record.StepID
			e.DecisionID = record.DecisionID
		})
		return nil
	})
	return s, err
}

// Advance moves the session to nextStep without a decision. Steps never move backwards;
// len(steps) marks completion.
func (m *Manager) Advance(ctx context.Context, simulationID string, nextStep int) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		current, ok := m.load(ctx, simulationID)
		if !ok {
			return fmt.Errorf("advance %s: %w", simulationID, domain.ErrSessionNotFound)
		}
		if nextStep < current.CurrentStep {
			return fmt.Errorf("advance %s from step %d to %d: %w",
				simulationID, current.CurrentStep, nextStep, domain.ErrStepOutOfOrder)
		}

		current.CurrentStep = nextStep
		m.save(ctx, current)

		s = current
		m.emit(ctx, m.hooks.OnAdvance, domain.EventAdvance, s, nil)
		return nil
	})
	return s, err
}

// ApplyExternalEffects stores newState as the result of entering stepID and marks the step
// as applied. When the step was already applied the session is returned unchanged and
// nothing is written.
func (m *Manager) ApplyExternalEffects(ctx context.Context, simulationID, stepID string, newState domain.State) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		current, ok := m.load(ctx, simulationID)
		if !ok {
			return fmt.Errorf("apply external effects %s: %w", simulationID, domain.ErrSessionNotFound)
		}
		s = current
		if current.HasAppliedExternalEffects(stepID) {
			return nil
		}

		current.State = newState.Clone()
		current.ExternalEffectsApplied = append(current.ExternalEffectsApplied, stepID)
		m.save(ctx, current)

		m.logger.Info("External effects applied", "simulation_id", simulationID, "step_id", stepID)
		m.emit(ctx, m.hooks.OnExternalEffects, domain.EventExternalEffects, s, func(e *domain.SessionEvent) {
			e.StepID = stepID
		})
		return nil
	})
	return s, err
}

// Reset discards the persisted session and starts over from initial.
func (m *Manager) Reset(ctx context.Context, simulationID string, initial domain.State) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		m.delete(ctx, simulationID)
		s = m.create(ctx, simulationID, initial)
		m.emit(ctx, m.hooks.OnSessionReset, domain.EventSessionReset, s, nil)
		return nil
	})
	return s, err
}

// Delete removes the persisted session, if any.
func (m *Manager) Delete(ctx context.Context, simulationID string) error {
	return m.WithLock(ctx, simulationID, func(ctx context.Context) error {
		m.delete(ctx, simulationID)
		return nil
	})
}

// List returns the ids of simulations with a persisted session.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	keys, err := m.store.List(ctx, m.prefix)
	if err != nil {
		m.persistenceFailure(ctx, "list", "", err)
		return []string{}, nil
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, m.prefix))
	}
	return ids, nil
}

// Store returns the underlying store.
func (m *Manager) Store() ports.KVStore {
	return m.store
}

func (m *Manager) key(simulationID string) string {
	return m.prefix + simulationID
}

func (m *Manager) create(ctx context.Context, simulationID string, initial domain.State) *domain.Session {
	s := domain.NewSession(simulationID, initial)
	m.save(ctx, s)
	m.logger.Debug("Session created", "simulation_id", simulationID)
	m.emit(ctx, m.hooks.OnSessionStart, domain.EventSessionStart, s, nil)
	return s
}

func (m *Manager) load(ctx context.Context, simulationID string) (*domain.Session, bool) {
	data, err := m.store.Get(ctx, m.key(simulationID))
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			m.persistenceFailure(ctx, "load", simulationID, err)
		}
		return nil, false
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.persistenceFailure(ctx, "decode", simulationID, err)
		return nil, false
	}
	if s.State == nil {
		s.State = domain.State{}
	}
	if s.DecisionHistory == nil {
		s.DecisionHistory = []domain.DecisionRecord{}
	}
	if s.ExternalEffectsApplied == nil {
		s.ExternalEffectsApplied = []string{}
	}
	return &s, true
}

func (m *Manager) save(ctx context.Context, s *domain.Session) {
	data, err := json.Marshal(s)
	if err != nil {
		m.persistenceFailure(ctx, "encode", s.SimulationID, err)
		return
	}
	if err := m.store.Set(ctx, m.key(s.SimulationID), data); err != nil {
		m.persistenceFailure(ctx, "save", s.SimulationID, err)
	}
}

func (m *Manager) delete(ctx context.Context, simulationID string) {
	if err := m.store.Delete(ctx, m.key(simulationID)); err != nil {
		m.persistenceFailure(ctx, "delete", simulationID, err)
	}
}

func (m *Manager) persistenceFailure(ctx context.Context, op, simulationID string, err error) {
	m.logger.Warn("Session persistence failed",
		"op", op,
		"simulation_id", simulationID,
		"err", err,
	)
	if m.hooks.OnPersistenceError != nil {
		m.hooks.OnPersistenceError(ctx, &domain.PersistenceEvent{
			EventBase: domain.EventBase{
				Timestamp:    domain.Now(),
				Type:         domain.EventPersistenceError,
				SimulationID: simulationID,
			},
			Operation: op,
			Err:       err,
		})
	}
}

func (m *Manager) emit(ctx context.Context, hook func(context.Context, *domain.SessionEvent), t domain.EventType, s *domain.Session, fill func(*domain.SessionEvent)) {
	if hook == nil {
		return
	}
	e := domain.NewSessionEvent(t, s.SimulationID)
	e.Step = s.CurrentStep
	if fill != nil {
		fill(e)
	}
	hook(ctx, e)
}
