package handler

import (
	"context"
	"time"

	m "coinfolio/internal/model"
)

type UserRetriever interface {
	UserByID(ctx context.Context, id m.ID) (*m.User, error)
	UserByEmail(ctx context.Context, email string) (*m.User, error)
	UserByEmailOrUsername(ctx context.Context, email, username string) (*m.User, error)
	UserTaken(ctx context.Context, except m.ID, email, username string) (bool, error)
	Users(ctx context.Context, page m.Page) ([]m.User, int64, error)
}

type UserWriter interface {
	InsertUser(ctx context.Context, u *m.User) error
	UpdateUser(ctx context.Context, id m.ID, fields m.Fields) (*m.User, error)
	DeleteUser(ctx context.Context, id m.ID) error
}

type CoinRetriever interface {
	CoinByID(ctx context.Context, id, userID m.ID) (*m.Coin, error)
	ActiveCoinBySymbol(ctx context.Context, userID m.ID, symbol string) (*m.Coin, error)
	Coins(ctx context.Context, userID m.ID, filter m.CoinFilter) ([]m.Coin, error)
}

type CoinWriter interface {
	InsertCoin(ctx context.Context, c *m.Coin) error
	UpdateCoin(ctx context.Context, id, userID m.ID, fields m.Fields) (*m.Coin, error)
	DeleteCoin(ctx context.Context, id, userID m.ID) error
	DeleteCoinsByOwner(ctx context.Context, userID m.ID) (int64, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, digest string) bool
}

type TokenIssuer interface {
	IssueToken(subject m.ID) (string, time.Time, error)
}

type TokenVerifier interface {
	VerifyToken(token string) (m.ID, error)
}
