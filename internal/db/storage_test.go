package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	m "coinfolio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

func TestSortField(t *testing.T) {
	assert.Equal(t, "symbol", sortField("symbol"))
	assert.Equal(t, "profitLossPercentage", sortField("profitLossPercentage"))
	assert.Equal(t, "createdAt", sortField(""))
	assert.Equal(t, "createdAt", sortField("password; DROP TABLE coins"))
}

func TestStgDsn(t *testing.T) {
	dsn := stgDsn(NewMysqlConfig("root", "pw", "127.0.0.1", "3306", "coinfolio"))
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/coinfolio?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}

func TestErrorMapping(t *testing.T) {
	assert.NoError(t, mongoErr(nil))
	assert.ErrorIs(t, mongoErr(mongo.ErrNoDocuments), m.ErrNotFound)
	assert.ErrorIs(t, mongoErr(mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}},
	}), m.ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, mongoErr(other))

	assert.NoError(t, sqlErr(nil))
	assert.ErrorIs(t, sqlErr(gorm.ErrRecordNotFound), m.ErrNotFound)
	assert.ErrorIs(t, sqlErr(gorm.ErrDuplicatedKey), m.ErrConflict)
	assert.Equal(t, other, sqlErr(other))
}

func TestNewStorageUnknownDriver(t *testing.T) {
	_, err := NewStorage(context.Background(), "sqlite", nil, nil)
	assert.Error(t, err)
}

/*
Integration runs need a live server:
MONGODB_URI=mongodb://localhost:27017 or MYSQL_HOST=127.0.0.1 (MYSQL_USER, MYSQL_PASSWORD, MYSQL_PORT, MYSQL_DATABASE)
*/

func TestMongoStorage(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx := context.Background()
	stg, err := NewMongoStorage(ctx, NewMongoConfig(uri, "coinfolio_test", 10*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		stg.users.Drop(ctx)
		stg.coins.Drop(ctx)
		stg.Close(ctx)
	})
	_, err = stg.users.DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
	_, err = stg.coins.DeleteMany(ctx, bson.M{})
	require.NoError(t, err)

	exerciseStorage(t, stg)
}

func TestSQLStorage(t *testing.T) {
	host := os.Getenv("MYSQL_HOST")
	if host == "" {
		t.Skip("MYSQL_HOST not set")
	}

	stg, err := NewSQLStorage(NewMysqlConfig(
		envOr("MYSQL_USER", "root"),
		os.Getenv("MYSQL_PASSWORD"),
		host,
		envOr("MYSQL_PORT", "3306"),
		envOr("MYSQL_DATABASE", "coinfolio_test"),
	))
	require.NoError(t, err)
	t.Cleanup(func() {
		stg.db.Migrator().DropTable(&m.Coin{}, &m.User{})
		stg.Close(context.Background())
	})
	require.NoError(t, stg.db.Where("1 = 1").Delete(&m.Coin{}).Error)
	require.NoError(t, stg.db.Where("1 = 1").Delete(&m.User{}).Error)

	exerciseStorage(t, stg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exerciseStorage(t *testing.T, stg Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	alice := &m.User{
		Email:       "alice@example.com",
		Username:    "alice",
		Password:    "digest",
		Preferences: m.DefaultPreferences(),
		Role:        m.RoleUser,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, stg.InsertUser(ctx, alice))
	require.False(t, alice.ID.IsZero())

	t.Run("users", func(t *testing.T) {
		got, err := stg.UserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "digest", got.Password)
		assert.Equal(t, "USD", got.Preferences.Currency)

		_, err = stg.UserByID(ctx, m.NewID())
		assert.ErrorIs(t, err, m.ErrNotFound)

		got, err = stg.UserByEmailOrUsername(ctx, "nobody@example.com", "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		dup := &m.User{Email: "alice@example.com", Username: "other", CreatedAt: now, UpdatedAt: now}
		assert.ErrorIs(t, stg.InsertUser(ctx, dup), m.ErrConflict)

		taken, err := stg.UserTaken(ctx, m.NewID(), "", "alice")
		require.NoError(t, err)
		assert.True(t, taken)
		taken, err = stg.UserTaken(ctx, alice.ID, "alice@example.com", "alice")
		require.NoError(t, err)
		assert.False(t, taken)

		updated, err := stg.UpdateUser(ctx, alice.ID, m.Fields{"fullName": "Alice Liddell", "isActive": true})
		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", updated.FullName)

		_, err = stg.UpdateUser(ctx, m.NewID(), m.Fields{"fullName": "x"})
		assert.ErrorIs(t, err, m.ErrNotFound)

		users, total, err := stg.Users(ctx, m.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, users, 1)
	})

	t.Run("coins", func(t *testing.T) {
		btc := &m.Coin{
			UserID:          alice.ID,
			Symbol:          "BTC",
			Name:            "Bitcoin",
			Quantity:        0.5,
			AverageBuyPrice: 45000,
			CurrentPrice:    m.Some(67000.0),
			TotalInvested:   22500,
			Tags:            []string{"store-of-value"},
			RiskLevel:       m.RiskMedium,
			InvestmentGoal:  m.LongTerm,
			IsActive:        true,
			PurchaseDate:    now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		require.NoError(t, stg.InsertCoin(ctx, btc))

		eth := &m.Coin{
			UserID:          alice.ID,
			Symbol:          "ETH",
			Name:            "Ethereum",
			Quantity:        2,
			AverageBuyPrice: 3000,
			TotalInvested:   6000,
			Tags:            []string{},
			IsActive:        true,
			PurchaseDate:    now,
			CreatedAt:       now.Add(time.Second),
			UpdatedAt:       now,
		}
		require.NoError(t, stg.InsertCoin(ctx, eth))

		got, err := stg.ActiveCoinBySymbol(ctx, alice.ID, "BTC")
		require.NoError(t, err)
		assert.Equal(t, btc.ID, got.ID)
		assert.Equal(t, 67000.0, got.CurrentPrice.Or(0))
		assert.Equal(t, []string{"store-of-value"}, []string(got.Tags))

		got, err = stg.CoinByID(ctx, eth.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, got.CurrentPrice.IsSet())

		_, err = stg.CoinByID(ctx, eth.ID, m.NewID())
		assert.ErrorIs(t, err, m.ErrNotFound)

		coins, err := stg.Coins(ctx, alice.ID, m.CoinFilter{Sort: "createdAt", Desc: true})
		require.NoError(t, err)
		require.Len(t, coins, 2)
		assert.Equal(t, "ETH", coins[0].Symbol)

		coins, err = stg.Coins(ctx, alice.ID, m.CoinFilter{Symbol: "BTC"})
		require.NoError(t, err)
		assert.Len(t, coins, 1)

		updated, err := stg.UpdateCoin(ctx, eth.ID, alice.ID, m.Fields{"currentPrice": m.Some(3500.0), "note": "staked"})
		require.NoError(t, err)
		assert.Equal(t, 3500.0, updated.CurrentPrice.Or(0))
		assert.Equal(t, "staked", updated.Note)

		inactive := false
		_, err = stg.UpdateCoin(ctx, eth.ID, alice.ID, m.Fields{"isActive": inactive})
		require.NoError(t, err)
		coins, err = stg.Coins(ctx, alice.ID, m.CoinFilter{Active: &inactive})
		require.NoError(t, err)
		assert.Len(t, coins, 1)

		assert.ErrorIs(t, stg.DeleteCoin(ctx, btc.ID, m.NewID()), m.ErrNotFound)
		require.NoError(t, stg.DeleteCoin(ctx, btc.ID, alice.ID))
		assert.ErrorIs(t, stg.DeleteCoin(ctx, btc.ID, alice.ID), m.ErrNotFound)

		n, err := stg.DeleteCoinsByOwner(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	require.NoError(t, stg.DeleteUser(ctx, alice.ID))
	assert.ErrorIs(t, stg.DeleteUser(ctx, alice.ID), m.ErrNotFound)
}
