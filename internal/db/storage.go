package db

import (
	"context"
	"fmt"
	"slices"
	"time"

	m "coinfolio/internal/model"
)

// Storage is the union of what the handlers need from a backend.
type Storage interface {
	UserByID(ctx context.Context, id m.ID) (*m.User, error)
	UserByEmail(ctx context.Context, email string) (*m.User, error)
	UserByEmailOrUsername(ctx context.Context, email, username string) (*m.User, error)
	UserTaken(ctx context.Context, except m.ID, email, username string) (bool, error)
	Users(ctx context.Context, page m.Page) ([]m.User, int64, error)
	InsertUser(ctx context.Context, u *m.User) error
	UpdateUser(ctx context.Context, id m.ID, fields m.Fields) (*m.User, error)
	DeleteUser(ctx context.Context, id m.ID) error

	CoinByID(ctx context.Context, id, userID m.ID) (*m.Coin, error)
	ActiveCoinBySymbol(ctx context.Context, userID m.ID, symbol string) (*m.Coin, error)
	Coins(ctx context.Context, userID m.ID, filter m.CoinFilter) ([]m.Coin, error)
	InsertCoin(ctx context.Context, c *m.Coin) error
	UpdateCoin(ctx context.Context, id, userID m.ID, fields m.Fields) (*m.Coin, error)
	DeleteCoin(ctx context.Context, id, userID m.ID) error
	DeleteCoinsByOwner(ctx context.Context, userID m.ID) (int64, error)

	Close(ctx context.Context) error
}

const (
	DriverMongo = "mongo"
	DriverMysql = "mysql"
)

// NewStorage opens the backend named by driver.
func NewStorage(ctx context.Context, driver string, mc *MongoConfig, sc *MysqlConfig) (Storage, error) {
	switch driver {
	case DriverMongo, "":
		return NewMongoStorage(ctx, mc)
	case DriverMysql:
		return NewSQLStorage(sc)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
}

type MongoConfig struct {
	uri     string
	name    string
	timeout time.Duration
}

func NewMongoConfig(uri string, name string, timeout time.Duration) *MongoConfig {
	return &MongoConfig{
		uri:     uri,
		name:    name,
		timeout: timeout,
	}
}

type MysqlConfig struct {
	user     string
	password string
	ip       string
	port     string
	scheme   string
}

func NewMysqlConfig(user string, password string, ip string, port string, scheme string) *MysqlConfig {
	return &MysqlConfig{
		user:     user,
		password: password,
		ip:       ip,
		port:     port,
		scheme:   scheme,
	}
}

const defaultCoinSort = "createdAt"

var coinSortFields = []string{
	"createdAt", "updatedAt", "purchaseDate", "lastPriceUpdate",
	"symbol", "name", "quantity", "averageBuyPrice", "currentPrice",
	"totalInvested", "currentValue", "profitLoss", "profitLossPercentage",
	"rank", "marketCap",
}

// sortField keeps client supplied sort keys to known columns.
func sortField(s string) string {
	if slices.Contains(coinSortFields, s) {
		return s
	}
	return defaultCoinSort
}
