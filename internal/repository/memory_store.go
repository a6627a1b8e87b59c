package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

// MemoryStore is an in-process domain.Store. A transaction buffers its
// writes and applies them in a single critical section at commit, so
// concurrent readers observe either all of a transaction's writes or none.
// Writes outside WithTransaction run as single-statement transactions.
type MemoryStore struct {
	state  *memoryState
	tx     *memoryTx
	logger *slog.Logger
}

var _ domain.Store = (*MemoryStore)(nil)

type memoryState struct {
	mu         sync.RWMutex
	cards      map[int64]domain.Card
	users      map[int64]domain.User
	nextCardID int64
	nextUserID int64
}

// memoryTx records pending writes. A nil map value marks a deletion.
type memoryTx struct {
	cards        map[int64]*domain.Card
	cardsCreated map[int64]bool
	users        map[int64]*domain.User
	usersCreated map[int64]bool
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			cards: make(map[int64]domain.Card),
			users: make(map[int64]domain.User),
		},
		logger: logger,
	}
}

func (s *MemoryStore) Cards() domain.CardRepository {
	return &memoryCardRepository{store: s}
}

func (s *MemoryStore) Users() domain.UserRepository {
	return &memoryUserRepository{store: s}
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	txStore := &MemoryStore{
		state: s.state,
		tx: &memoryTx{
			cards:        make(map[int64]*domain.Card),
			cardsCreated: make(map[int64]bool),
			users:        make(map[int64]*domain.User),
			usersCreated: make(map[int64]bool),
		},
		logger: s.logger,
	}

	if err := fn(txStore); err != nil {
		return err
	}
	if err := s.state.commit(ctx, txStore.tx); err != nil {
		s.logger.Warn("Transaction rejected at commit", "error", err)
		return err
	}
	return nil
}

func (st *memoryState) allocCardID() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextCardID++
	return st.nextCardID
}

func (st *memoryState) allocUserID() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextUserID++
	return st.nextUserID
}

// commit validates the whole write set against the current state before
// applying any of it.
func (st *memoryState) commit(ctx context.Context, tx *memoryTx) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for id, u := range tx.users {
		if tx.usersCreated[id] {
			if u == nil {
				continue
			}
			for otherID, existing := range st.users {
				if otherID != id && existing.Username == u.Username {
					return errors.ErrDuplicateUser
				}
			}
			continue
		}
		if _, ok := st.users[id]; !ok {
			return errors.ErrUserNotFound
		}
	}

	for id, c := range tx.cards {
		if tx.cardsCreated[id] {
			if c == nil {
				continue
			}
			var ownerExists bool
			if pending, ok := tx.users[c.UserID]; ok {
				ownerExists = pending != nil
			} else {
				_, ownerExists = st.users[c.UserID]
			}
			if !ownerExists {
				return errors.ErrUserNotFound
			}
			continue
		}
		if _, ok := st.cards[id]; !ok {
			return errors.ErrCardNotFound
		}
	}

	for id, u := range tx.users {
		if u == nil {
			delete(st.users, id)
			for cardID, c := range st.cards {
				if c.UserID == id {
					delete(st.cards, cardID)
				}
			}
			continue
		}
		st.users[id] = *u
	}

	for id, c := range tx.cards {
		if c == nil {
			delete(st.cards, id)
			continue
		}
		if _, ownerLive := st.users[c.UserID]; !ownerLive {
			continue
		}
		st.cards[id] = *c
	}
	return nil
}

func (s *MemoryStore) lookupCard(id int64) (*domain.Card, bool) {
	if s.tx != nil {
		if c, ok := s.tx.cards[id]; ok {
			if c == nil {
				return nil, false
			}
			cp := *c
			return &cp, true
		}
	}

	s.state.mu.RLock()
	c, ok := s.state.cards[id]
	s.state.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &c, true
}

// snapshotCards returns the cards visible to s ordered by id.
func (s *MemoryStore) snapshotCards(keep func(*domain.Card) bool) []*domain.Card {
	s.state.mu.RLock()
	merged := make(map[int64]*domain.Card, len(s.state.cards))
	for id, c := range s.state.cards {
		cp := c
		merged[id] = &cp
	}
	s.state.mu.RUnlock()

	if s.tx != nil {
		for id, c := range s.tx.cards {
			if c == nil {
				delete(merged, id)
				continue
			}
			cp := *c
			merged[id] = &cp
		}
	}

	out := make([]*domain.Card, 0, len(merged))
	for _, c := range merged {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) lookupUser(id int64) (*domain.User, bool) {
	if s.tx != nil {
		if u, ok := s.tx.users[id]; ok {
			if u == nil {
				return nil, false
			}
			cp := *u
			return &cp, true
		}
	}

	s.state.mu.RLock()
	u, ok := s.state.users[id]
	s.state.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &u, true
}

func (s *MemoryStore) snapshotUsers() []*domain.User {
	s.state.mu.RLock()
	merged := make(map[int64]*domain.User, len(s.state.users))
	for id, u := range s.state.users {
		cp := u
		merged[id] = &cp
	}
	s.state.mu.RUnlock()

	if s.tx != nil {
		for id, u := range s.tx.users {
			if u == nil {
				delete(merged, id)
				continue
			}
			cp := *u
			merged[id] = &cp
		}
	}

	out := make([]*domain.User, 0, len(merged))
	for _, u := range merged {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(cards []*domain.Card, page domain.Page) []*domain.Card {
	page = page.Normalize()
	if page.Offset >= len(cards) {
		return []*domain.Card{}
	}
	end := page.Offset + page.Limit
	if end > len(cards) {
		end = len(cards)
	}
	return cards[page.Offset:end]
}

type memoryCardRepository struct {
	store *MemoryStore
}

func (r *memoryCardRepository) inTx(ctx context.Context, fn func(domain.CardRepository) error) error {
	return r.store.WithTransaction(ctx, func(tx domain.Store) error {
		return fn(tx.Cards())
	})
}

func (r *memoryCardRepository) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, ok := r.store.lookupCard(id)
	if !ok {
		return nil, errors.ErrCardNotFound
	}
	return card, nil
}

// GetCardForUpdate is a plain read; callers serialize writers themselves.
func (r *memoryCardRepository) GetCardForUpdate(ctx context.Context, id int64) (*domain.Card, error) {
	return r.GetCard(ctx, id)
}

func (r *memoryCardRepository) ListCardsByOwner(ctx context.Context, userID int64, page domain.Page) ([]*domain.Card, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	cards := r.store.snapshotCards(func(c *domain.Card) bool { return c.UserID == userID })
	return paginate(cards, page), len(cards), nil
}

func (r *memoryCardRepository) ListCards(ctx context.Context, page domain.Page) ([]*domain.Card, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	cards := r.store.snapshotCards(func(*domain.Card) bool { return true })
	return paginate(cards, page), len(cards), nil
}

func (r *memoryCardRepository) CreateCard(ctx context.Context, card *domain.Card) error {
	if r.store.tx == nil {
		return r.inTx(ctx, func(repo domain.CardRepository) error { return repo.CreateCard(ctx, card) })
	}
	if _, ok := r.store.lookupUser(card.UserID); !ok {
		return errors.ErrUserNotFound
	}

	now := time.Now().UTC()
	card.ID = r.store.state.allocCardID()
	card.CreatedAt = now
	card.UpdatedAt = now

	cp := *card
	r.store.tx.cards[card.ID] = &cp
	r.store.tx.cardsCreated[card.ID] = true
	return nil
}

func (r *memoryCardRepository) SaveCard(ctx context.Context, card *domain.Card) error {
	if r.store.tx == nil {
		return r.inTx(ctx, func(repo domain.CardRepository) error { return repo.SaveCard(ctx, card) })
	}
	existing, ok := r.store.lookupCard(card.ID)
	if !ok {
		return errors.ErrCardNotFound
	}

	card.UpdatedAt = time.Now().UTC()
	cp := *card
	cp.CardNumberEncrypted = existing.CardNumberEncrypted
	cp.UserID = existing.UserID
	cp.CreatedAt = existing.CreatedAt
	r.store.tx.cards[card.ID] = &cp
	return nil
}

func (r *memoryCardRepository) DeleteCard(ctx context.Context, id int64) error {
	if r.store.tx == nil {
		return r.inTx(ctx, func(repo domain.CardRepository) error { return repo.DeleteCard(ctx, id) })
	}
	if _, ok := r.store.lookupCard(id); !ok {
		return errors.ErrCardNotFound
	}
	r.store.tx.cards[id] = nil
	return nil
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) inTx(ctx context.Context, fn func(domain.UserRepository) error) error {
	return r.store.WithTransaction(ctx, func(tx domain.Store) error {
		return fn(tx.Users())
	})
}

func (r *memoryUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if r.store.tx == nil {
		return r.inTx(ctx, func(repo domain.UserRepository) error { return repo.CreateUser(ctx, user) })
	}
	for _, existing := range r.store.snapshotUsers() {
		if existing.Username == user.Username {
			return errors.ErrDuplicateUser
		}
	}

	user.ID = r.store.state.allocUserID()
	user.CreatedAt = time.Now().UTC()

	cp := *user
	r.store.tx.users[user.ID] = &cp
	r.store.tx.usersCreated[user.ID] = true
	return nil
}

func (r *memoryUserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, ok := r.store.lookupUser(id)
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, u := range r.store.snapshotUsers() {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (r *memoryUserRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.store.snapshotUsers(), nil
}

func (r *memoryUserRepository) DeleteUser(ctx context.Context, id int64) error {
	if r.store.tx == nil {
		return r.inTx(ctx, func(repo domain.UserRepository) error { return repo.DeleteUser(ctx, id) })
	}
	if _, ok := r.store.lookupUser(id); !ok {
		return errors.ErrUserNotFound
	}
	r.store.tx.users[id] = nil
	return nil
}
