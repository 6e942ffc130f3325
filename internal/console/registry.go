package console

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ragdesk/internal/identity"
)

// DefaultBackendURL is used when no backend base URL is configured.
const DefaultBackendURL = "http://localhost:8000"

// Options is the configuration injected into the console at construction.
type Options struct {
	BackendBaseURL          string
	PrivilegedAddress       string
	ClearSelectionOnSuccess bool
}

// BackendURL returns the configured base URL or the local default.
func (o Options) BackendURL() string {
	if u := strings.TrimSpace(o.BackendBaseURL); u != "" {
		return u
	}
	return DefaultBackendURL
}

// Backend is everything a console needs from the backend services.
type Backend interface {
	ChatAPI
	IngestAPI
}

// Console is the interactive state of one signed-in identity: one
// conversation and one upload batch.
type Console struct {
	Identity identity.Identity
	Chat     *ChatSession
	Ingest   *BatchCoordinator
}

// Registry keeps one Console per identity subject.
type Registry struct {
	backend Backend
	opts    Options
	sink    EventSink
	logger  *zap.Logger

	mu       sync.Mutex
	consoles map[string]*Console
}

func NewRegistry(backend Backend, opts Options, sink EventSink, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		backend:  backend,
		opts:     opts,
		sink:     sink,
		logger:   logger,
		consoles: make(map[string]*Console),
	}
}

// Get returns the console for who, creating it on first use.
func (r *Registry) Get(who identity.Identity) *Console {
	key := who.Subject()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.consoles[key]; ok {
		return c
	}
	logger := r.logger.With(zap.Uint("user_id", who.UserID))
	c := &Console{
		Identity: who,
		Chat:     NewChatSession(r.backend, logger.Named("chat")),
		Ingest: NewBatchCoordinator(r.backend, CoordinatorConfig{
			Endpoint:       r.opts.BackendURL(),
			ClearOnSuccess: r.opts.ClearSelectionOnSuccess,
			Actor:          who.Email,
			Sink:           r.sink,
		}, logger.Named("ingest")),
	}
	r.consoles[key] = c
	return c
}

// Enter returns the console behind an authorized decision. Entering a
// privileged view refreshes the index status first.
func (r *Registry) Enter(ctx context.Context, d Decision, view View) (*Console, bool) {
	if d.Outcome != OutcomeAuthorized || d.Identity == nil {
		return nil, false
	}
	c := r.Get(*d.Identity)
	if view.Required == TierPrivileged {
		c.Ingest.FetchStatus(ctx)
	}
	return c, true
}

// Drop discards the console of a signed-out identity.
func (r *Registry) Drop(who identity.Identity) {
	r.mu.Lock()
	delete(r.consoles, who.Subject())
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}
