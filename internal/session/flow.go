package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"authflow/internal/apiclient"
	"authflow/internal/logging"
	"authflow/internal/types"
)

var (
	// ErrSuperseded is returned when a logout, close or newer submit overtook the call.
	ErrSuperseded = errors.New("session: operation superseded")
	ErrClosed     = errors.New("session: flow closed")
)

// API is the subset of the auth API the flow needs. *apiclient.Client implements it.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, username, email, password string) (string, error)
	GetProfile(ctx context.Context, token string) (map[string]any, error)
}

// Observer is told about every transition. It runs with the flow locked and must not call back into the Flow.
type Observer func(Snapshot)

// Flow owns the token and profile of one user session.
// All mutations happen under mu; a generation counter drops completions of superseded calls.
type Flow struct {
	api    API
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	profile   *types.Profile
	errMsg    string
	gen       uint64
	seq       uint64
	closed    bool
	nextOp    uint64
	inflight  map[uint64]context.CancelFunc
	observers []Observer
}

type Option func(*Flow)

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

func WithObserver(o Observer) Option {
	return func(f *Flow) { f.observers = append(f.observers, o) }
}

func New(api API, opts ...Option) *Flow {
	f := &Flow{
		api:      api,
		logger:   logging.Discard(),
		inflight: make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "session")
	return f
}

// Subscribe adds an observer after construction.
func (f *Flow) Subscribe(o Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, o)
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Login authenticates and then fetches the profile. It blocks until both round-trips finish.
func (f *Flow) Login(ctx context.Context, email, password string) error {
	return f.authenticate(ctx, "login", func(ctx context.Context) (string, error) {
		return f.api.Login(ctx, email, password)
	})
}

// Register creates the account and then fetches the profile, same as Login.
func (f *Flow) Register(ctx context.Context, username, email, password string) error {
	return f.authenticate(ctx, "register", func(ctx context.Context) (string, error) {
		return f.api.Register(ctx, username, email, password)
	})
}

// Logout clears token, profile and error in one step and abandons in-flight calls.
func (f *Flow) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.logger.Info("logged out")
}

// Close disposes the flow. Later calls fail with ErrClosed and late completions are dropped.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.resetLocked()
}

func (f *Flow) resetLocked() {
	f.gen++
	for id, cancel := range f.inflight {
		cancel()
		delete(f.inflight, id)
	}
	f.token = ""
	f.profile = nil
	f.errMsg = ""
	f.transitionLocked(Unauthenticated)
}

func (f *Flow) authenticate(ctx context.Context, op string, call func(context.Context) (string, error)) error {
	ctx, gen, done, err := f.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	token, err := call(ctx)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.logger.Debug("dropping stale completion", "op", op)
		return ErrSuperseded
	}
	if err != nil {
		f.token = ""
		f.profile = nil
		f.errMsg = err.Error()
		f.transitionLocked(AuthenticationFailed)
		f.mu.Unlock()
		f.logger.Warn("authentication failed", "op", op, "error", err)
		return err
	}
	f.token = token
	f.profile = nil
	f.errMsg = ""
	f.transitionLocked(Authenticated)
	f.transitionLocked(FetchingProfile)
	f.mu.Unlock()
	f.logger.Info("authenticated", "op", op)

	return f.fetchProfile(ctx, gen, token)
}

func (f *Flow) fetchProfile(ctx context.Context, gen uint64, token string) error {
	fields, err := f.api.GetProfile(ctx, token)

	var profile types.Profile
	if err == nil {
		profile, err = apiclient.DecodeProfile(fields)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		f.logger.Debug("dropping stale profile")
		return ErrSuperseded
	}
	if err != nil {
		f.profile = nil
		f.errMsg = err.Error()
		f.transitionLocked(ProfileFetchFailed)
		f.logger.Warn("profile fetch failed", "error", err)
		return err
	}
	f.profile = &profile
	f.errMsg = ""
	f.transitionLocked(Ready)
	return nil
}

// begin opens a new generation, moves to Authenticating and registers a cancellable context.
func (f *Flow) begin(parent context.Context) (context.Context, uint64, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, 0, nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(parent)
	f.nextOp++
	id := f.nextOp
	f.inflight[id] = cancel

	f.gen++
	gen := f.gen
	f.token = ""
	f.profile = nil
	f.errMsg = ""
	f.transitionLocked(Authenticating)

	done := func() {
		cancel()
		f.mu.Lock()
		delete(f.inflight, id)
		f.mu.Unlock()
	}
	return ctx, gen, done, nil
}

func (f *Flow) transitionLocked(s State) {
	f.state = s
	f.seq++
	snap := f.snapshotLocked()
	for _, o := range f.observers {
		o(snap)
	}
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State: f.state,
		Token: f.token,
		Err:   f.errMsg,
		Seq:   f.seq,
	}
	if f.profile != nil {
		p := *f.profile
		snap.Profile = &p
	}
	return snap
}
