package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestEmail(t *testing.T) {
	assert.True(t, Email("alice@example.com").Valid)
	assert.Equal(t, []string{"Email is required"}, Email("").Errors)
	assert.Equal(t, []string{"Invalid email format"}, Email("alice@example").Errors)
	assert.Equal(t, []string{"Invalid email format"}, Email("al ice@example.com").Errors)
}

func TestPassword(t *testing.T) {
	assert.True(t, Password("secret").Valid)
	assert.Equal(t, []string{"Password is required"}, Password("").Errors)
	assert.Equal(t, []string{"Password must be at least 6 characters long"}, Password("12345").Errors)
	assert.Equal(t, []string{"Password must be less than 100 characters"}, Password(strings.Repeat("a", 101)).Errors)
	assert.True(t, Password(strings.Repeat("a", 100)).Valid)
}

func TestUsername(t *testing.T) {
	assert.True(t, Username("hodl_er42").Valid)
	assert.Equal(t, []string{"Username is required"}, Username("").Errors)

	t.Run("violations_accumulate", func(t *testing.T) {
		r := Username("a!")
		assert.False(t, r.Valid)
		assert.Equal(t, []string{
			"Username must be at least 3 characters long",
			"Username can only contain letters, numbers, and underscores",
		}, r.Errors)
	})

	assert.Equal(t, []string{"Username must be less than 30 characters"}, Username(strings.Repeat("x", 31)).Errors)
}

func TestMerge(t *testing.T) {
	r := Merge(Email(""), Username("ab"), Password("123"))

	assert.False(t, r.Valid)
	assert.Equal(t, "Email is required, Username must be at least 3 characters long, Password must be at least 6 characters long", r.Message())
	assert.True(t, Merge(Email("a@b.co"), Password("123456")).Valid)
}

func TestCoin(t *testing.T) {

	t.Run("valid", func(t *testing.T) {
		r := Coin(CoinInput{Symbol: "btc", Name: "Bitcoin", Quantity: ptr(0.5), AverageBuyPrice: ptr(45000)})
		assert.True(t, r.Valid)
		assert.Empty(t, r.Errors)
	})

	t.Run("zero_current_price_is_allowed", func(t *testing.T) {
		r := Coin(CoinInput{Symbol: "btc", Name: "Bitcoin", Quantity: ptr(1), AverageBuyPrice: ptr(1), CurrentPrice: ptr(0)})
		assert.True(t, r.Valid)
	})

	t.Run("everything_missing", func(t *testing.T) {
		r := Coin(CoinInput{})
		assert.Equal(t, []string{
			"Coin symbol is required",
			"Coin name is required",
			"Quantity is required",
			"Average buy price is required",
		}, r.Errors)
	})

	t.Run("ranges", func(t *testing.T) {
		r := Coin(CoinInput{
			Symbol:          "VERYLONGSYMBOL",
			Name:            "   ",
			Quantity:        ptr(0),
			AverageBuyPrice: ptr(-1),
			CurrentPrice:    ptr(-5),
		})
		assert.Equal(t, []string{
			"Coin symbol must be less than 10 characters",
			"Coin name is required",
			"Quantity must be greater than 0",
			"Average buy price must be greater than 0",
			"Current price cannot be negative",
		}, r.Errors)
	})
}

func TestStructGenericMessage(t *testing.T) {
	type buy struct {
		Quantity float64 `json:"quantity" validate:"gt=0"`
		Note     string  `json:"note" validate:"required"`
	}

	r := Struct(buy{}, nil)
	assert.Equal(t, []string{"quantity must be greater than 0", "note is required"}, r.Errors)
}
