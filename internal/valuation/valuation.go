// Package valuation holds the pure portfolio arithmetic: per-coin profit and
// loss, weighted average cost on top-ups and portfolio aggregation. Nothing in
// here touches storage or mutates its inputs.
package valuation

import (
	"errors"
	"slices"
	"time"

	m "coinfolio/internal/model"

	"github.com/shopspring/decimal"
)

var ErrZeroQuantity = errors.New("total quantity is zero")

type Valuation struct {
	CurrentValue         float64 `json:"currentValue"`
	ProfitLoss           float64 `json:"profitLoss"`
	ProfitLossPercentage float64 `json:"profitLossPercentage"`
}

// ValueOf computes the derived fields of a coin. A coin with no price yet is
// left at zero rather than showing the whole cost basis as a loss.
func ValueOf(c m.Coin) Valuation {
	price, ok := c.CurrentPrice.Get()
	if !ok {
		return Valuation{}
	}

	currentValue := c.Quantity * price
	profitLoss := currentValue - c.TotalInvested

	return Valuation{
		CurrentValue:         Round2(currentValue),
		ProfitLoss:           Round2(profitLoss),
		ProfitLossPercentage: Round2(Percentage(profitLoss, c.TotalInvested)),
	}
}

// Recompute refreshes totalInvested and the valuation fields of a copy of c.
func Recompute(c m.Coin) m.Coin {
	c.Tags = slices.Clone(c.Tags)
	c.TotalInvested = c.Quantity * c.AverageBuyPrice
	v := ValueOf(c)
	c.CurrentValue = v.CurrentValue
	c.ProfitLoss = v.ProfitLoss
	c.ProfitLossPercentage = v.ProfitLossPercentage
	return c
}

// Reprice returns a copy of c priced at newPrice.
func Reprice(c m.Coin, newPrice float64, now time.Time) m.Coin {
	c.CurrentPrice = m.Some(newPrice)
	c = Recompute(c)
	c.LastPriceUpdate = &now
	c.UpdatedAt = now
	return c
}

// WeightedAverage is the average buy price after adding addQty units bought
// at addPrice, kept to 8 places for low priced assets.
func WeightedAverage(currentQty, currentAvgPrice, addQty, addPrice float64) (float64, error) {
	totalQty := currentQty + addQty
	if totalQty == 0 {
		return 0, ErrZeroQuantity
	}
	totalValue := currentQty*currentAvgPrice + addQty*addPrice
	return round(totalValue/totalQty, 8), nil
}

// Summarize aggregates coins in a single pass. Ties for top and worst
// performer keep the first coin seen.
func Summarize(userID m.ID, coins []m.Coin, now time.Time) m.Portfolio {
	p := m.Portfolio{
		UserID:      userID,
		CoinCount:   len(coins),
		LastUpdated: now,
	}

	var totalInvested, currentValue float64
	for i, c := range coins {
		v := ValueOf(c)
		totalInvested += c.TotalInvested
		currentValue += v.CurrentValue

		if i == 0 || v.ProfitLossPercentage > p.TopPerformer.ProfitLossPercentage {
			p.TopPerformer = performer(c, v)
		}
		if i == 0 || v.ProfitLossPercentage < p.WorstPerformer.ProfitLossPercentage {
			p.WorstPerformer = performer(c, v)
		}
	}

	totalProfitLoss := currentValue - totalInvested
	p.TotalInvested = Round2(totalInvested)
	p.CurrentValue = Round2(currentValue)
	p.TotalProfitLoss = Round2(totalProfitLoss)
	p.TotalProfitLossPercentage = Round2(Percentage(totalProfitLoss, totalInvested))
	return p
}

func performer(c m.Coin, v Valuation) *m.Performer {
	return &m.Performer{
		Symbol:               c.Symbol,
		Name:                 c.Name,
		ProfitLossPercentage: v.ProfitLossPercentage,
	}
}

// Percentage is part/whole*100, or 0 when whole is not positive.
func Percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func Round2(v float64) float64 {
	return round(v, 2)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
