// Package console keeps the per-session working state of the admin console:
// one paginated listing per resource, the open order drafts and the
// notification badge poller.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/notify"
	"github.com/vasiliy-maslov/rental-admin-console/internal/order"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

var (
	ErrUnknownListing = errors.New("unknown listing")
	ErrDraftNotFound  = errors.New("draft not found")
)

type Options struct {
	PriceDebounce time.Duration
	PollInterval  time.Duration
}

type Workspace struct {
	sessionID string
	services  *resource.Services
	debounce  time.Duration

	mu       sync.Mutex
	listings map[string]Listing
	drafts   map[uuid.UUID]*order.Workflow

	poller     *notify.Poller
	stopPoller context.CancelFunc
}

// Registry maps session IDs to their workspaces.
type Registry struct {
	services *resource.Services
	opts     Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(services *resource.Services, opts Options) *Registry {
	if opts.PriceDebounce <= 0 {
		opts.PriceDebounce = order.DefaultPriceDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	return &Registry{
		services:   services,
		opts:       opts,
		workspaces: make(map[string]*Workspace),
	}
}

// For returns the workspace of s, creating it and starting its badge poller
// on first use.
func (r *Registry) For(s *session.Session) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[s.ID]; ok {
		return ws
	}

	pollCtx, cancel := context.WithCancel(session.NewContext(context.Background(), s))
	ws := &Workspace{
		sessionID:  s.ID,
		services:   r.services,
		debounce:   r.opts.PriceDebounce,
		listings:   make(map[string]Listing),
		drafts:     make(map[uuid.UUID]*order.Workflow),
		poller:     notify.NewPoller(r.services.Notifications, r.opts.PollInterval),
		stopPoller: cancel,
	}
	go ws.poller.Run(pollCtx)

	r.workspaces[s.ID] = ws
	log.Debug().Str("session_id", s.ID).Msg("Workspace opened")
	return ws
}

// Drop discards the workspace of a session, closing its drafts.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	r.mu.Unlock()

	if ok {
		ws.close()
		log.Debug().Str("session_id", sessionID).Msg("Workspace dropped")
	}
}

// SessionLookup loads a stored session, failing with session.ErrNotFound or
// session.ErrExpired once it is gone.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Sweep drops the workspaces whose session can no longer be loaded and
// returns how many went. Lookup failures other than a missing or expired
// session keep the workspace.
func (r *Registry) Sweep(ctx context.Context, sessions SessionLookup) int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.workspaces))
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	dropped := 0
	for _, id := range ids {
		_, err := sessions.Get(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired), errors.Is(err, session.ErrInvalidID):
			r.Drop(id)
			dropped++
		default:
			log.Warn().Err(err).Str("session_id", id).Msg("Failed to check workspace session")
		}
	}
	return dropped
}

func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, ws := range all {
		ws.close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (w *Workspace) close() {
	w.stopPoller()

	w.mu.Lock()
	defer w.mu.Unlock()
	for id, d := range w.drafts {
		d.Close()
		delete(w.drafts, id)
	}
}

// Listing returns the named listing, creating it unloaded on first use.
func (w *Workspace) Listing(name string) (Listing, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if l, ok := w.listings[name]; ok {
		return l, nil
	}
	def, ok := listingDefs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownListing, name)
	}
	l := def.build(w.services)
	w.listings[name] = l
	return l, nil
}

// NewDraft opens an empty order draft. ctx must carry the operator session.
func (w *Workspace) NewDraft(ctx context.Context) (uuid.UUID, *order.Workflow, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to generate draft id: %w", err)
	}

	wf := order.NewWorkflow(ctx, order.Deps{
		Users:    w.services.Users,
		Products: w.services.Products,
		Orders:   w.services.Orders,
	}, w.debounce)

	w.mu.Lock()
	w.drafts[id] = wf
	w.mu.Unlock()

	log.Info().Str("session_id", w.sessionID).Stringer("draft_id", id).Msg("Order draft opened")
	return id, wf, nil
}

func (w *Workspace) Draft(id uuid.UUID) (*order.Workflow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wf, ok := w.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return wf, nil
}

func (w *Workspace) CloseDraft(id uuid.UUID) error {
	w.mu.Lock()
	wf, ok := w.drafts[id]
	delete(w.drafts, id)
	w.mu.Unlock()

	if !ok {
		return ErrDraftNotFound
	}
	wf.Close()
	return nil
}

func (w *Workspace) DraftIDs() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(w.drafts))
	for id := range w.drafts {
		ids = append(ids, id)
	}
	return ids
}

func (w *Workspace) Badge() notify.Badge {
	return w.poller.Badge()
}
