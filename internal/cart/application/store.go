package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelez/storefront/internal/cart/domain"
)

// Store is the single source of truth for one cart: in-memory state plus a
// durable snapshot written after every successful mutation. One logical actor
// drives a cart, so the mutex only guards against the reconciler and the HTTP
// layer touching it from different goroutines.
type Store struct {
	log       *slog.Logger
	oracle    InventoryOracle
	snapshots SnapshotStore

	mu     sync.Mutex
	cart   domain.Cart
	pusher *remotePusher
}

func NewStore(log *slog.Logger, oracle InventoryOracle, snapshots SnapshotStore, cart domain.Cart) *Store {
	return &Store{
		log:       log.With("cart_id", cart.ID),
		oracle:    oracle,
		snapshots: snapshots,
		cart:      cart,
	}
}

// Cart returns a copy safe to hold outside the store.
func (s *Store) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Snapshot returns the persisted form of the current cart.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// AddItem fetches a fresh product snapshot and increases the line quantity by
// qty. The whole mutation is rejected when the combined quantity would exceed
// the observed inventory.
func (s *Store) AddItem(ctx context.Context, productID string, qty int) (domain.Cart, error) {
	product, err := s.oracle.GetProduct(ctx, productID)
	if err != nil {
		return s.Cart(), fmt.Errorf("inventory lookup for %s: %w", productID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.AddLine(product, qty); err != nil {
		return s.cart.Clone(), err
	}
	s.commitLocked(ctx)
	return s.cart.Clone(), nil
}

// SetQuantity sets a line to an absolute quantity, with the same inventory
// bound as AddItem. Zero or negative removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) (domain.Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	product, err := s.oracle.GetProduct(ctx, productID)
	if err != nil {
		return s.Cart(), fmt.Errorf("inventory lookup for %s: %w", productID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.SetLineQuantity(product, qty); err != nil {
		return s.cart.Clone(), err
	}
	s.commitLocked(ctx)
	return s.cart.Clone(), nil
}

// RemoveItem deletes the line if present; removing an absent line changes
// nothing and is not an error.
func (s *Store) RemoveItem(ctx context.Context, productID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.RemoveLine(productID) {
		s.commitLocked(ctx)
	}
	return s.cart.Clone(), nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.ClearLines()
	s.commitLocked(ctx)
	return s.cart.Clone(), nil
}

// AdoptRemote replaces local lines with the remote cart (remote-wins branch
// of reconciliation). The local version jumps past the remote one so the next
// push is not rejected as stale.
func (s *Store) AdoptRemote(ctx context.Context, remote domain.RemoteCart) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.ReplaceLines(remote.Lines)
	if remote.Version > s.cart.Version {
		s.cart.Version = remote.Version
	}
	s.commitLocked(ctx)
	return s.cart.Clone()
}

// AlignVersion raises the local version to at least v. Called during
// reconciliation so pushes are not rejected against a remote row whose
// version outran the local cart.
func (s *Store) AlignVersion(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.cart.Version {
		s.cart.Version = v
	}
}

// BindRemote attaches the push queue so every subsequent mutation is mirrored
// to the actor's remote cart, best effort.
func (s *Store) BindRemote(actorID string, remote RemoteCartRepository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pusher = newRemotePusher(s.log, remote, actorID)
}

// commitLocked runs the fixed post-mutation sequence: recompute totals, write
// the durable snapshot, schedule a remote push when bound. Snapshot and push
// failures are non-fatal; local state stays authoritative for the session.
func (s *Store) commitLocked(ctx context.Context) {
	s.cart.Recompute(time.Now())
	snap := s.cart.Snapshot()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.log.Warn("cart snapshot write failed", "err", err)
	}
	if s.pusher != nil {
		s.pusher.Enqueue(snap)
	}
}

// Manager hands out one Store per cart, restoring the durable snapshot on
// first access. Consumers receive the store by injection; there is no
// ambient global cart.
type Manager struct {
	log       *slog.Logger
	oracle    InventoryOracle
	snapshots SnapshotStore

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(log *slog.Logger, oracle InventoryOracle, snapshots SnapshotStore) *Manager {
	return &Manager{
		log:       log,
		oracle:    oracle,
		snapshots: snapshots,
		stores:    make(map[string]*Store),
	}
}

// Store returns the cart store for cartID, loading the persisted snapshot or
// starting an empty cart.
func (m *Manager) Store(ctx context.Context, cartID string) (*Store, error) {
	m.mu.Lock()
	if st, ok := m.stores[cartID]; ok {
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()

	cart := domain.NewCart(cartID)
	snap, ok, err := m.snapshots.Load(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot %s: %w", cartID, err)
	}
	if ok {
		cart = snap.Restore()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stores[cartID]; ok {
		return st, nil
	}
	st := NewStore(m.log, m.oracle, m.snapshots, cart)
	m.stores[cartID] = st
	return st, nil
}

// Cart returns a copy of the current cart for cartID.
func (m *Manager) Cart(ctx context.Context, cartID string) (domain.Cart, error) {
	st, err := m.Store(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	return st.Cart(), nil
}

// Clear empties the cart for cartID and retires its store. Used by
// confirmed-order handling, which owns cart clearing after a successful
// payment. Retiring keeps the store map bounded by live carts; a later access
// rebuilds from the snapshot store, and the remote binding is re-established
// on the next sync.
func (m *Manager) Clear(ctx context.Context, cartID string) error {
	st, err := m.Store(ctx, cartID)
	if err != nil {
		return err
	}
	if _, err := st.Clear(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.stores, cartID)
	m.mu.Unlock()
	if err := m.snapshots.Delete(ctx, cartID); err != nil {
		m.log.Warn("cart snapshot delete failed", "cart_id", cartID, "err", err)
	}
	return nil
}
