package storage

import (
	"context"
	"sync"

	"github.com/mh2301/shop-core/internal/core/domain"
)

// MemoryCartStore keeps carts in process memory. Each cart has its own lock,
// so read-modify-write cycles on the same key serialize while different carts
// proceed in parallel. Carts do not survive a restart.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]*cartEntry
}

type cartEntry struct {
	mu   sync.Mutex
	cart domain.Cart
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]*cartEntry)}
}

func (s *MemoryCartStore) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	s.mu.Lock()
	entry, ok := s.carts[cartID]
	s.mu.Unlock()

	if !ok {
		// Fresh carts are not stored until a mutation happens.
		return domain.NewCart(cartID), nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.cart.Clone(), nil
}

func (s *MemoryCartStore) Update(ctx context.Context, cartID string, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	entry := s.entry(cartID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(&entry.cart); err != nil {
		return domain.Cart{}, err
	}

	return entry.cart.Clone(), nil
}

func (s *MemoryCartStore) Clear(ctx context.Context, cartID string) error {
	s.mu.Lock()
	entry, ok := s.carts[cartID]
	s.mu.Unlock()

	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.cart = domain.NewCart(cartID)
	return nil
}

func (s *MemoryCartStore) entry(cartID string) *cartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.carts[cartID]
	if !ok {
		entry = &cartEntry{cart: domain.NewCart(cartID)}
		s.carts[cartID] = entry
	}
	return entry
}
