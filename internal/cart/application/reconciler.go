package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelez/storefront/internal/cart/domain"
)

// Reconciler merges local and remote carts at the unauthenticated to
// authenticated transition (or app start while already authenticated).
type Reconciler struct {
	log    *slog.Logger
	remote RemoteCartRepository
}

func NewReconciler(log *slog.Logger, remote RemoteCartRepository) *Reconciler {
	return &Reconciler{log: log, remote: remote}
}

// Reconcile resolves local versus remote state and binds the store to the
// actor's remote cart for subsequent pushes.
//
// A non-empty remote cart wins outright: once the actor has a cart on another
// device, that is the cross-device source of truth. An empty or absent remote
// with a non-empty local cart means a guest cart meeting its account for the
// first time, so local seeds the remote.
func (r *Reconciler) Reconcile(ctx context.Context, actorID string, store *Store) error {
	remote, ok, err := r.remote.Get(ctx, actorID)
	if err != nil {
		return fmt.Errorf("remote cart fetch for %s: %w", actorID, err)
	}

	// Any existing remote row sets the version floor, even one holding an
	// empty cart (the actor cleared it elsewhere). Without this, every later
	// push would arrive below the stored version and be rejected as stale.
	if ok {
		store.AlignVersion(remote.Version)
	}

	switch {
	case ok && len(remote.Lines) > 0:
		store.AdoptRemote(ctx, remote)
	case len(store.Cart().Lines) > 0:
		if err := r.remote.Put(ctx, actorID, store.Snapshot()); err != nil {
			return fmt.Errorf("remote cart seed for %s: %w", actorID, err)
		}
	}

	store.BindRemote(actorID, r.remote)
	return nil
}

const pushTimeout = 10 * time.Second

// remotePusher mirrors cart mutations to the remote cart with at most one
// push in flight. Each push carries the full snapshot; while one is in
// flight, newer snapshots coalesce so only the latest leaves the process.
type remotePusher struct {
	log     *slog.Logger
	remote  RemoteCartRepository
	actorID string

	mu       sync.Mutex
	cond     *sync.Cond
	inflight bool
	pending  *domain.CartSnapshot
}

func newRemotePusher(log *slog.Logger, remote RemoteCartRepository, actorID string) *remotePusher {
	p := &remotePusher{log: log, remote: remote, actorID: actorID}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *remotePusher) Enqueue(snap domain.CartSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight {
		p.pending = &snap
		return
	}
	p.inflight = true
	go p.run(snap)
}

func (p *remotePusher) run(snap domain.CartSnapshot) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		err := p.remote.Put(ctx, p.actorID, snap)
		cancel()
		if err != nil {
			// Optimistic local-first: no rollback, the next mutation pushes a
			// fresher snapshot anyway.
			p.log.Warn("remote cart push failed", "actor_id", p.actorID, "err", err)
		}

		p.mu.Lock()
		if p.pending == nil {
			p.inflight = false
			p.cond.Broadcast()
			p.mu.Unlock()
			return
		}
		snap = *p.pending
		p.pending = nil
		p.mu.Unlock()
	}
}

// wait blocks until the queue is idle.
func (p *remotePusher) wait() {
	p.mu.Lock()
	for p.inflight {
		p.cond.Wait()
	}
	p.mu.Unlock()
}
