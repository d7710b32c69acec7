package valuation

import (
	"cmp"
	"fmt"
	"slices"

	m "coinfolio/internal/model"

	"github.com/Rhymond/go-money"
)

type Breakdown struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	TotalInvested        float64 `json:"totalInvested"`
	CurrentValue         float64 `json:"currentValue"`
	ProfitLoss           float64 `json:"profitLoss"`
	ProfitLossPercentage float64 `json:"profitLossPercentage"`
	Allocation           float64 `json:"allocation"`
}

type Performance struct {
	TotalCoins      int     `json:"totalCoins"`
	ProfitableCoins int     `json:"profitableCoins"`
	LosingCoins     int     `json:"losingCoins"`
	LargestPosition float64 `json:"largestPosition"`
	AveragePosition float64 `json:"averagePosition"`
}

type Display struct {
	TotalInvested   string `json:"totalInvested"`
	CurrentValue    string `json:"currentValue"`
	TotalProfitLoss string `json:"totalProfitLoss"`
	Percentage      string `json:"totalProfitLossPercentage"`
}

type Analytics struct {
	CoinBreakdown []Breakdown `json:"coinBreakdown"`
	Performance   Performance `json:"performance"`
	Display       Display     `json:"display"`
}

// Analyze breaks p down per coin, largest current value first.
func Analyze(p m.Portfolio, coins []m.Coin) Analytics {
	a := Analytics{
		CoinBreakdown: make([]Breakdown, 0, len(coins)),
		Performance:   Performance{TotalCoins: len(coins)},
		Display:       display(p),
	}

	for _, c := range coins {
		v := ValueOf(c)
		a.CoinBreakdown = append(a.CoinBreakdown, Breakdown{
			Symbol:               c.Symbol,
			Name:                 c.Name,
			TotalInvested:        c.TotalInvested,
			CurrentValue:         v.CurrentValue,
			ProfitLoss:           v.ProfitLoss,
			ProfitLossPercentage: v.ProfitLossPercentage,
			Allocation:           Round2(Allocation(v.CurrentValue, p.CurrentValue)),
		})

		switch {
		case v.ProfitLoss > 0:
			a.Performance.ProfitableCoins++
		case v.ProfitLoss < 0:
			a.Performance.LosingCoins++
		}
		a.Performance.LargestPosition = max(a.Performance.LargestPosition, c.TotalInvested)
	}

	if len(coins) > 0 {
		a.Performance.AveragePosition = Round2(p.TotalInvested / float64(len(coins)))
	}

	slices.SortStableFunc(a.CoinBreakdown, func(x, y Breakdown) int {
		return cmp.Compare(y.CurrentValue, x.CurrentValue)
	})
	return a
}

// Allocation is the share of total held by value, in percent.
func Allocation(value, total float64) float64 {
	return Percentage(value, total)
}

// amounts are tracked in USD; no conversion happens here.
func display(p m.Portfolio) Display {
	return Display{
		TotalInvested:   money.NewFromFloat(p.TotalInvested, money.USD).Display(),
		CurrentValue:    money.NewFromFloat(p.CurrentValue, money.USD).Display(),
		TotalProfitLoss: money.NewFromFloat(p.TotalProfitLoss, money.USD).Display(),
		Percentage:      SignedPercent(p.TotalProfitLossPercentage),
	}
}

// SignedPercent renders 12.5 as "+12.50%".
func SignedPercent(v float64) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, v)
}
