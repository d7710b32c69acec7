package handler

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	m "coinfolio/internal/model"

	"github.com/kr/pretty"
)

/***************************** Store ***********************************/

// StoreMock keeps users and coins in memory and satisfies every storage
// interface the handlers consume.
type StoreMock struct {
	mu        sync.Mutex
	users     map[m.ID]m.User
	coins     map[m.ID]m.Coin
	coinOrder []m.ID
	userOrder []m.ID

	err        error
	failUpdate map[string]bool // symbols whose coin updates fail
}

func NewStoreMock() *StoreMock {
	return &StoreMock{
		users:      map[m.ID]m.User{},
		coins:      map[m.ID]m.Coin{},
		failUpdate: map[string]bool{},
	}
}

func (mock *StoreMock) reset() {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	mock.users = map[m.ID]m.User{}
	mock.coins = map[m.ID]m.Coin{}
	mock.coinOrder = nil
	mock.userOrder = nil
	mock.err = nil
	mock.failUpdate = map[string]bool{}
}

func (mock *StoreMock) prettyPrint() {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	pretty.Println(mock.users)
	pretty.Println(mock.coins)
}

func (mock *StoreMock) UserByID(ctx context.Context, id m.ID) (*m.User, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	u, ok := mock.users[id]
	if !ok {
		return nil, m.ErrNotFound
	}
	return &u, nil
}

func (mock *StoreMock) UserByEmail(ctx context.Context, email string) (*m.User, error) {
	return mock.findUser(func(u m.User) bool { return u.Email == email })
}

func (mock *StoreMock) UserByEmailOrUsername(ctx context.Context, email, username string) (*m.User, error) {
	return mock.findUser(func(u m.User) bool { return u.Email == email || u.Username == username })
}

func (mock *StoreMock) findUser(match func(m.User) bool) (*m.User, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	for _, id := range mock.userOrder {
		if u := mock.users[id]; match(u) {
			return &u, nil
		}
	}
	return nil, m.ErrNotFound
}

func (mock *StoreMock) UserTaken(ctx context.Context, except m.ID, email, username string) (bool, error) {
	_, err := mock.findUser(func(u m.User) bool {
		return u.ID != except && ((email != "" && u.Email == email) || (username != "" && u.Username == username))
	})
	if err == m.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (mock *StoreMock) Users(ctx context.Context, page m.Page) ([]m.User, int64, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, 0, mock.err
	}

	users := []m.User{}
	for i := len(mock.userOrder) - 1; i >= 0; i-- {
		users = append(users, mock.users[mock.userOrder[i]])
	}
	total := int64(len(users))

	if page.Limit > 0 {
		start := min(page.Offset(), len(users))
		end := min(start+page.Limit, len(users))
		users = users[start:end]
	}
	return users, total, nil
}

func (mock *StoreMock) InsertUser(ctx context.Context, u *m.User) error {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return mock.err
	}
	for _, other := range mock.users {
		if other.Email == u.Email || other.Username == u.Username {
			return m.ErrConflict
		}
	}
	if u.ID.IsZero() {
		u.ID = m.NewID()
	}
	mock.users[u.ID] = *u
	mock.userOrder = append(mock.userOrder, u.ID)
	return nil
}

func (mock *StoreMock) UpdateUser(ctx context.Context, id m.ID, fields m.Fields) (*m.User, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	u, ok := mock.users[id]
	if !ok {
		return nil, m.ErrNotFound
	}

	password := u.Password
	if err := overlay(&u, fields); err != nil {
		return nil, err
	}
	u.Password = password
	if p, ok := fields["password"].(string); ok {
		u.Password = p
	}

	mock.users[id] = u
	return &u, nil
}

func (mock *StoreMock) DeleteUser(ctx context.Context, id m.ID) error {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return mock.err
	}
	if _, ok := mock.users[id]; !ok {
		return m.ErrNotFound
	}
	delete(mock.users, id)
	mock.userOrder = slices.DeleteFunc(mock.userOrder, func(x m.ID) bool { return x == id })
	return nil
}

func (mock *StoreMock) CoinByID(ctx context.Context, id, userID m.ID) (*m.Coin, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	c, ok := mock.coins[id]
	if !ok || c.UserID != userID {
		return nil, m.ErrNotFound
	}
	return &c, nil
}

func (mock *StoreMock) ActiveCoinBySymbol(ctx context.Context, userID m.ID, symbol string) (*m.Coin, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	for _, id := range mock.coinOrder {
		c := mock.coins[id]
		if c.UserID == userID && c.Symbol == symbol && c.IsActive {
			return &c, nil
		}
	}
	return nil, m.ErrNotFound
}

// Coins orders by insertion only; filter.Sort is ignored.
func (mock *StoreMock) Coins(ctx context.Context, userID m.ID, filter m.CoinFilter) ([]m.Coin, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}

	coins := []m.Coin{}
	for _, id := range mock.coinOrder {
		c := mock.coins[id]
		if c.UserID != userID {
			continue
		}
		if filter.Active != nil && c.IsActive != *filter.Active {
			continue
		}
		if filter.Symbol != "" && c.Symbol != filter.Symbol {
			continue
		}
		coins = append(coins, c)
	}
	if filter.Desc {
		slices.Reverse(coins)
	}
	return coins, nil
}

func (mock *StoreMock) InsertCoin(ctx context.Context, c *m.Coin) error {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return mock.err
	}
	if c.ID.IsZero() {
		c.ID = m.NewID()
	}
	mock.coins[c.ID] = *c
	mock.coinOrder = append(mock.coinOrder, c.ID)
	return nil
}

func (mock *StoreMock) UpdateCoin(ctx context.Context, id, userID m.ID, fields m.Fields) (*m.Coin, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return nil, mock.err
	}
	c, ok := mock.coins[id]
	if !ok || c.UserID != userID {
		return nil, m.ErrNotFound
	}
	if mock.failUpdate[c.Symbol] {
		return nil, context.DeadlineExceeded
	}
	if err := overlay(&c, fields); err != nil {
		return nil, err
	}
	mock.coins[id] = c
	return &c, nil
}

func (mock *StoreMock) DeleteCoin(ctx context.Context, id, userID m.ID) error {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return mock.err
	}
	c, ok := mock.coins[id]
	if !ok || c.UserID != userID {
		return m.ErrNotFound
	}
	delete(mock.coins, id)
	mock.coinOrder = slices.DeleteFunc(mock.coinOrder, func(x m.ID) bool { return x == id })
	return nil
}

func (mock *StoreMock) DeleteCoinsByOwner(ctx context.Context, userID m.ID) (int64, error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()

	if mock.err != nil {
		return 0, mock.err
	}
	var n int64
	for id, c := range mock.coins {
		if c.UserID == userID {
			delete(mock.coins, id)
			n++
		}
	}
	mock.coinOrder = slices.DeleteFunc(mock.coinOrder, func(x m.ID) bool {
		_, ok := mock.coins[x]
		return !ok
	})
	return n, nil
}

// overlay applies fields to dst through their json names, which match the
// stored names.
func overlay(dst any, fields m.Fields) error {
	raw, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
