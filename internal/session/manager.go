package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justinabrahms/hotseatchess/internal/chess"
	"github.com/justinabrahms/hotseatchess/internal/store"
)

var ErrMatchNotFound = errors.New("match not found")

// Event types delivered to the listener.
const (
	EventCreated  = "created"
	EventSelect   = "select"
	EventMove     = "move"
	EventDraw     = "draw_offer"
	EventGameEnd  = "game_end"
	EventReset    = "reset"
	EventRestored = "restored"
)

// Event reports a change to a live match.
type Event struct {
	MatchID  string            `json:"matchId"`
	Type     string            `json:"type"`
	Result   *chess.MoveResult `json:"result,omitempty"`
	Snapshot chess.Snapshot    `json:"snapshot"`
}

// Summary describes a live match in listings.
type Summary struct {
	ID        string              `json:"id"`
	Status    chess.GameStatus    `json:"status"`
	Turn      chess.Color         `json:"turn"`
	Moves     int                 `json:"moves"`
	CreatedAt time.Time           `json:"createdAt"`
	Material  chess.MaterialCount `json:"material"`
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithStore sets where named saves and the autosave slot go.
func WithStore(s store.Store) Option {
	return func(m *Manager) { m.store = s }
}

func WithInitialTime(d time.Duration) Option {
	return func(m *Manager) { m.initialTime = d }
}

// WithTickInterval sets how often running clocks are decremented.
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.tick = d }
}

// WithAutosave turns the autosave slot on or off.
func WithAutosave(on bool) Option {
	return func(m *Manager) { m.autosave = on }
}

// WithListener registers fn to receive every Event. It is called without any
// match lock held and must not block.
func WithListener(fn func(Event)) Option {
	return func(m *Manager) { m.listener = fn }
}

// Manager owns the live matches of the process. Each match has its own lock,
// so calls on different matches never wait for each other.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	store       store.Store
	initialTime time.Duration
	tick        time.Duration
	autosave    bool
	listener    func(Event)
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type session struct {
	id      string
	mu      sync.Mutex
	match   *chess.Match
	created time.Time
	stop    context.CancelFunc
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*session),
		initialTime: chess.DefaultInitialTime,
		tick:        time.Second,
		autosave:    true,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = store.NewMemoryStore()
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Close stops every clock. The store is left open.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// Create starts a new match and its clock.
func (m *Manager) Create() (string, chess.Snapshot) {
	s := m.start(chess.NewMatch(m.matchOptions()...))
	s.mu.Lock()
	snap := s.match.Snapshot()
	s.mu.Unlock()
	m.logger.Info().Str("match", s.id).Msg("Match created")
	m.emit(Event{MatchID: s.id, Type: EventCreated, Snapshot: snap})
	return s.id, snap
}

func (m *Manager) matchOptions() []chess.Option {
	return []chess.Option{
		chess.WithInitialTime(m.initialTime),
		chess.WithLogger(m.logger),
	}
}

// start registers a match and runs its clock until the match is removed or the
// manager closes.
func (m *Manager) start(match *chess.Match) *session {
	ctx, stop := context.WithCancel(m.ctx)
	s := &session{
		id:      uuid.NewString(),
		match:   match,
		created: time.Now(),
		stop:    stop,
	}
	match.Clock().OnExpire(func(c chess.Color) { m.expire(s, c) })

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		match.Clock().Run(ctx, m.tick)
	}()
	return s
}

// expire runs after the clock released its lock, so a Reset or Restore may
// have won the race for s.mu. Their fresh clock is not expired and the stale
// report is dropped.
func (m *Manager) expire(s *session, c chess.Color) {
	s.mu.Lock()
	if !s.match.Clock().Expired() {
		s.mu.Unlock()
		m.logger.Debug().Str("match", s.id).Str("color", c.String()).Msg("Dropped stale clock expiry")
		return
	}
	res, err := s.match.TimeElapsed(c)
	snap := s.match.Snapshot()
	s.mu.Unlock()
	if err != nil {
		m.logger.Warn().Err(err).Str("match", s.id).Str("color", c.String()).Msg("Ignored clock expiry")
		return
	}
	m.logger.Info().Str("match", s.id).Str("color", c.String()).Msg("Time elapsed")
	m.afterChange(m.ctx, s, snap)
	m.emit(Event{MatchID: s.id, Type: EventGameEnd, Result: &res, Snapshot: snap})
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrMatchNotFound)
	}
	return s, nil
}

func (m *Manager) emit(ev Event) {
	if m.listener != nil {
		m.listener(ev)
	}
}

// Remove drops a live match and stops its clock.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrMatchNotFound)
	}
	s.stop()
	m.logger.Info().Str("match", id).Msg("Match removed")
	return nil
}

// List summarizes every live match, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		snap := s.match.Snapshot()
		s.mu.Unlock()
		out = append(out, Summary{
			ID:        s.id,
			Status:    snap.Status,
			Turn:      snap.Turn,
			Moves:     len(snap.History[chess.White]) + len(snap.History[chess.Black]),
			CreatedAt: s.created,
			Material:  snap.Material,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Snapshot returns the current view of a match.
func (m *Manager) Snapshot(id string) (chess.Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return chess.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.Snapshot(), nil
}

// Select returns the legal destinations of the piece on sq.
func (m *Manager) Select(id string, sq chess.Square) ([]chess.Square, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.SelectSquare(sq), nil
}

// Move plays from→to. Once a clock has run out no move is taken, even if the
// expiry callback has not ended the match yet.
func (m *Manager) Move(ctx context.Context, id string, from, to chess.Square) (chess.MoveResult, error) {
	return m.mutate(ctx, id, EventMove, func(match *chess.Match) (chess.MoveResult, error) {
		if match.Clock().Expired() {
			return chess.MoveResult{}, chess.ErrGameOver
		}
		return match.TryMove(from, to)
	})
}

// Promote completes a pending promotion.
func (m *Manager) Promote(ctx context.Context, id string, kind chess.Kind) (chess.MoveResult, error) {
	return m.mutate(ctx, id, EventMove, func(match *chess.Match) (chess.MoveResult, error) {
		return match.ResolvePromotion(kind)
	})
}

func (m *Manager) OfferDraw(ctx context.Context, id string) error {
	_, err := m.mutate(ctx, id, EventDraw, func(match *chess.Match) (chess.MoveResult, error) {
		if err := match.OfferDraw(); err != nil {
			return chess.MoveResult{}, err
		}
		return chess.MoveResult{Turn: match.Turn(), DrawAvailable: true}, nil
	})
	return err
}

func (m *Manager) AcceptDraw(ctx context.Context, id string) (chess.MoveResult, error) {
	return m.mutate(ctx, id, EventGameEnd, func(match *chess.Match) (chess.MoveResult, error) {
		return match.AcceptDraw()
	})
}

func (m *Manager) Resign(ctx context.Context, id string, c chess.Color) (chess.MoveResult, error) {
	return m.mutate(ctx, id, EventGameEnd, func(match *chess.Match) (chess.MoveResult, error) {
		return match.Resign(c)
	})
}

// Reset starts the match over in place.
func (m *Manager) Reset(ctx context.Context, id string) (chess.Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return chess.Snapshot{}, err
	}
	s.mu.Lock()
	snap := s.match.Reset()
	s.mu.Unlock()
	m.afterChange(ctx, s, snap)
	m.emit(Event{MatchID: id, Type: EventReset, Snapshot: snap})
	return snap, nil
}

// mutate runs fn under the match lock, then autosaves and notifies when fn
// succeeded.
func (m *Manager) mutate(ctx context.Context, id, typ string, fn func(*chess.Match) (chess.MoveResult, error)) (chess.MoveResult, error) {
	s, err := m.get(id)
	if err != nil {
		return chess.MoveResult{}, err
	}
	s.mu.Lock()
	res, err := fn(s.match)
	snap := s.match.Snapshot()
	s.mu.Unlock()
	if err != nil {
		return res, err
	}

	if res.GameOver {
		typ = EventGameEnd
	}
	m.afterChange(ctx, s, snap)
	m.emit(Event{MatchID: id, Type: typ, Result: &res, Snapshot: snap})
	return res, nil
}

// afterChange keeps the autosave slot in step with the match: written while it
// runs, removed once it is over.
func (m *Manager) afterChange(ctx context.Context, s *session, snap chess.Snapshot) {
	if !m.autosave {
		return
	}
	if snap.Outcome != nil {
		if err := m.store.Delete(ctx, store.AutosaveName); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Error().Err(err).Str("match", s.id).Msg("Failed to clear autosave")
		}
		return
	}
	s.mu.Lock()
	state := s.match.Serialize()
	s.mu.Unlock()
	rec := store.Record{Name: store.AutosaveName, State: state, SavedAt: time.Now().UTC()}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Error().Err(err).Str("match", s.id).Msg("Failed to autosave")
	}
}

// Serialize returns the encoded state of a match.
func (m *Manager) Serialize(id string) (string, error) {
	s, err := m.get(id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.Serialize(), nil
}

// Restore replaces a live match with an encoded state. On error the match is
// unchanged.
func (m *Manager) Restore(ctx context.Context, id, state string) (chess.Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return chess.Snapshot{}, err
	}
	s.mu.Lock()
	err = s.match.Restore(state)
	snap := s.match.Snapshot()
	s.mu.Unlock()
	if err != nil {
		return chess.Snapshot{}, err
	}
	m.afterChange(ctx, s, snap)
	m.emit(Event{MatchID: id, Type: EventRestored, Snapshot: snap})
	return snap, nil
}

// Save stores a match under name. An empty name gets a generated one, which
// is returned.
func (m *Manager) Save(ctx context.Context, id, name string) (string, error) {
	if name == "" {
		name = petname.Generate(2, "-")
	}
	name, err := store.NormalizeName(name)
	if err != nil {
		return "", err
	}
	state, err := m.Serialize(id)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(ctx, store.Record{Name: name, State: state, SavedAt: time.Now().UTC()}); err != nil {
		return "", fmt.Errorf("save %q: %w", name, err)
	}
	m.logger.Info().Str("match", id).Str("name", name).Msg("Match saved")
	return name, nil
}

// Load starts a new live match from a named save.
func (m *Manager) Load(ctx context.Context, name string) (string, chess.Snapshot, error) {
	rec, err := m.store.Load(ctx, name)
	if err != nil {
		return "", chess.Snapshot{}, err
	}
	match, err := chess.Decode(rec.State, m.matchOptions()...)
	if err != nil {
		return "", chess.Snapshot{}, fmt.Errorf("load %q: %w", name, err)
	}
	s := m.start(match)
	s.mu.Lock()
	snap := s.match.Snapshot()
	s.mu.Unlock()
	m.logger.Info().Str("match", s.id).Str("name", rec.Name).Msg("Match loaded")
	m.emit(Event{MatchID: s.id, Type: EventRestored, Snapshot: snap})
	return s.id, snap, nil
}

// Resume loads the autosave slot if there is one.
func (m *Manager) Resume(ctx context.Context) (string, bool, error) {
	id, _, err := m.Load(ctx, store.AutosaveName)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (m *Manager) ListSaves(ctx context.Context) ([]store.Record, error) {
	return m.store.List(ctx)
}

func (m *Manager) DeleteSave(ctx context.Context, name string) error {
	return m.store.Delete(ctx, name)
}

func (m *Manager) DeleteAllSaves(ctx context.Context) error {
	return m.store.DeleteAll(ctx)
}
