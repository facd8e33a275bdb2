package opname

import (
	"context"
	"errors"
	"sync"
	"time"

	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/pkg/logger"
)

// State of a counting session.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSaving     State = "saving"
	StateFinalizing State = "finalizing"
)

// ErrStaleLoad marks a load whose result arrived after a newer load
// started. Not a user-facing error; callers drop it silently.
var ErrStaleLoad = errors.New("stale load discarded")

// LocationLocker is an advisory lock telling other operators a location
/// is being counted. Best effort: lock failures never block counting.
type LocationLocker interface {
	// Acquire tries to take the lock. When already held by someone
	// else it returns false and the holder's name.
	Acquire(ctx context.Context, locationID id.ID, owner string) (bool, string, error)

	// Release frees the lock if still held by owner.
	Release(ctx context.Context, locationID id.ID, owner string) error
}

// Session holds one operator's in-memory counting state for the
// currently selected location. State transitions are serialized; a new
// Load supersedes any in-flight one and the stale result is discarded.
//
// Failed saves and finalizes leave the in-memory items untouched, so
// the operator's work survives transient service errors and the action
// can simply be retried.
type Session struct {
	svc   *Service
	locks LocationLocker // optional
	owner string

	mu         sync.Mutex
	state      State
	locationID id.ID
	date       time.Time
	items      []*InventoryItem
	loadSeq    uint64
	drafted    map[id.ID]struct{}

	// countedBy is set when the advisory lock is held by someone else.
	countedBy string
}

// NewSession creates an idle session for the given operator.
func NewSession(svc *Service, locks LocationLocker, owner string) *Session {
	return &Session{
		svc:     svc,
		locks:   locks,
		owner:   owner,
		state:   StateIdle,
		drafted: make(map[id.ID]struct{}),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Items returns the current counting sheet.
func (s *Session) Items() []*InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Location returns the currently selected location.
func (s *Session) Location() id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationID
}

// Date returns the count date of the current sheet.
func (s *Session) Date() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// CountedBy returns the name of another operator holding the advisory
// lock on the current location, or empty.
func (s *Session) CountedBy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countedBy
}

// Load selects a location and builds its counting sheet. A concurrent
// Load for another location supersedes this one; the superseded result
// is dropped with ErrStaleLoad. Load failures return the session to
// idle with no partial list.
func (s *Session) Load(ctx context.Context, locationID id.ID, date time.Time) ([]*InventoryItem, error) {
	s.mu.Lock()
	prev := s.locationID
	s.loadSeq++
	token := s.loadSeq
	s.state = StateLoading
	s.locationID = locationID
	s.date = Day(date)
	s.countedBy = ""
	s.mu.Unlock()

	if s.locks != nil && !id.IsNil(prev) && prev != locationID {
		if err := s.locks.Release(ctx, prev, s.owner); err != nil {
			logger.Warn(ctx, "release location lock failed", "location_id", prev, "error", err)
		}
	}

	var countedBy string
	if s.locks != nil {
		ok, holder, err := s.locks.Acquire(ctx, locationID, s.owner)
		if err != nil {
			logger.Warn(ctx, "acquire location lock failed", "location_id", locationID, "error", err)
		} else if !ok {
			countedBy = holder
		}
	}

	items, err := s.svc.Load(ctx, locationID, date)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.loadSeq {
		return nil, ErrStaleLoad
	}

	if err != nil {
		s.state = StateIdle
		s.items = nil
		return nil, err
	}

	s.state = StateReady
	s.items = items
	s.countedBy = countedBy
	return items, nil
}

// AddManual prepends an uncounted item with zero system stock, for
// materials physically present but absent from the system snapshot.
func (s *Session) AddManual(materialID id.ID, code, name, unit string) (*InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return nil, apperror.NewValidation("no location loaded")
	}

	for _, it := range s.items {
		if it.MaterialID == materialID {
			return nil, apperror.NewValidation("material is already on the counting sheet").
				WithDetail("materialId", materialID.String())
		}
	}

	item := NewInventoryItem(materialID, code, name, unit, 0)
	item.IsModified = true
	s.items = append([]*InventoryItem{item}, s.items...)
	return item, nil
}

// SetCount records a directly entered physical count for a material.
func (s *Session) SetCount(materialID id.ID, qty types.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.findLocked(materialID)
	if err != nil {
		return err
	}

	item.SetPhysicalStock(qty)
	return nil
}

// ApplyBreakdown replaces a material's breakdown with the given rows
// and commits their sum as the physical count.
func (s *Session) ApplyBreakdown(materialID id.ID, rows []WorkingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rows) == 0 {
		return apperror.NewValidation("breakdown needs at least one row")
	}

	item, err := s.findLocked(materialID)
	if err != nil {
		return err
	}

	calc := NewCalculator(item)
	calc.ReplaceRows(rows)
	calc.Commit(item)
	return nil
}

// SaveDraft persists the counted items of the current sheet as a new
// draft event and marks the location as drafted.
func (s *Session) SaveDraft(ctx context.Context) (*Draft, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, apperror.NewValidation("no location loaded")
	}
	locationID := s.locationID
	date := s.date
	items := s.items
	s.state = StateSaving
	s.mu.Unlock()

	draft, err := s.svc.SaveDraft(ctx, locationID, date, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady

	if err != nil {
		return nil, err
	}

	s.drafted[locationID] = struct{}{}
	return draft, nil
}

// Finalize reconciles all drafted locations for the session's date. On
// success the drafted set is cleared and the current location's sheet
// is reloaded so system stock reflects the adjustments just posted.
func (s *Session) Finalize(ctx context.Context) (*Report, error) {
	if !appctx.IsAdmin(ctx) {
		return nil, apperror.NewForbidden("finalize requires the admin role")
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, apperror.NewValidation("no location loaded")
	}
	locationID := s.locationID
	date := s.date
	s.state = StateFinalizing
	s.mu.Unlock()

	report, err := s.svc.Finalize(ctx, date)
	if err != nil {
		s.mu.Lock()
		s.state = StateReady
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.drafted = make(map[id.ID]struct{})
	s.state = StateReady
	s.mu.Unlock()

	if _, err := s.Load(ctx, locationID, date); err != nil && !errors.Is(err, ErrStaleLoad) {
		logger.Warn(ctx, "reload after finalize failed", "location_id", locationID, "error", err)
	}

	return report, nil
}

// Close releases the advisory lock when the operator leaves.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	locationID := s.locationID
	s.state = StateIdle
	s.items = nil
	s.locationID = id.Nil()
	s.mu.Unlock()

	if s.locks != nil && !id.IsNil(locationID) {
		if err := s.locks.Release(ctx, locationID, s.owner); err != nil {
			logger.Warn(ctx, "release location lock failed", "location_id", locationID, "error", err)
		}
	}
}

// HasDraft reports whether the session saved a draft for the location.
func (s *Session) HasDraft(locationID id.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drafted[locationID]
	return ok
}

// DraftedLocations returns locations drafted in this session.
func (s *Session) DraftedLocations() []id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]id.ID, 0, len(s.drafted))
	for locID := range s.drafted {
		out = append(out, locID)
	}
	return out
}

func (s *Session) findLocked(materialID id.ID) (*InventoryItem, error) {
	if s.state != StateReady {
		return nil, apperror.NewValidation("no location loaded")
	}
	for _, it := range s.items {
		if it.MaterialID == materialID {
			return it, nil
		}
	}
	return nil, apperror.NewNotFound("inventory item", materialID)
}

// Manager hands out one session per operator.
type Manager struct {
	svc   *Service
	locks LocationLocker

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(svc *Service, locks LocationLocker) *Manager {
	return &Manager{
		svc:      svc,
		locks:    locks,
		sessions: make(map[string]*Session),
	}
}

// Get returns the operator's session, creating it on first use.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}

	s := NewSession(m.svc, m.locks, userID)
	m.sessions[userID] = s
	return s
}

// Close removes the operator's session and releases its lock.
func (m *Manager) Close(ctx context.Context, userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
}
