package handler

import (
	"context"
	"os"
	"strings"
	"time"

	m "coinfolio/internal/model"
	"coinfolio/internal/valuation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxPriceWorkers bounds the concurrent per-symbol updates of one request.
const maxPriceWorkers = 8

type PortfolioHandler struct {
	r  CoinRetriever
	w  CoinWriter
	lg zerolog.Logger
}

func NewPortfolioHandler(r CoinRetriever, w CoinWriter) *PortfolioHandler {
	return &PortfolioHandler{
		r:  r,
		w:  w,
		lg: zerolog.New(os.Stdout).With().Str("Module", "PortfolioHandler").Timestamp().Logger(),
	}
}

func (h *PortfolioHandler) InitRoute(router fiber.Router, guards ...fiber.Handler) {

	r := router.Group("/portfolio", guards...)

	r.Get("/", h.Portfolio)
	r.Put("/", h.UpdatePrices)
}

type portfolioResp struct {
	Portfolio m.Portfolio         `json:"portfolio"`
	Analytics valuation.Analytics `json:"analytics"`
}

func (h *PortfolioHandler) Portfolio(c *fiber.Ctx) error {

	userID := currentUserID(c)
	active := true

	coins, err := h.r.Coins(c.UserContext(), userID, m.CoinFilter{Active: &active})
	if err != nil {
		return m.Internal("Failed to get portfolio", err)
	}

	now := time.Now().UTC()
	portfolio := valuation.Summarize(userID, coins, now)

	if len(coins) == 0 {
		return respond(c, fiber.StatusOK, portfolio, "No coins in portfolio")
	}

	return respond(c, fiber.StatusOK, portfolioResp{
		Portfolio: portfolio,
		Analytics: valuation.Analyze(portfolio, coins),
	}, "")
}

// UpdatePrices applies each price to every active holding of that symbol.
// Entries succeed or fail on their own; the request fails only when the
// prices list is missing.
func (h *PortfolioHandler) UpdatePrices(c *fiber.Ctx) error {

	var req UpdatePricesReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Prices == nil {
		return m.Validation("Invalid request", "Prices array is required")
	}

	userID := currentUserID(c)
	ctx := c.UserContext()
	now := time.Now().UTC()

	results := make([]priceResult, len(req.Prices))

	var g errgroup.Group
	g.SetLimit(maxPriceWorkers)
	for i, entry := range req.Prices {
		g.Go(func() error {
			results[i] = h.applyPrice(ctx, userID, entry, now)
			return nil
		})
	}
	g.Wait()

	return respond(c, fiber.StatusOK, priceUpdateResp{UpdateResults: results}, "Price update completed")
}

func (h *PortfolioHandler) applyPrice(ctx context.Context, userID m.ID, entry PriceEntry, now time.Time) priceResult {

	res := priceResult{Symbol: entry.Symbol}

	symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
	switch {
	case symbol == "":
		res.Error = "Symbol is required"
		return res
	case entry.Price == nil:
		res.Error = "Price is required"
		return res
	case *entry.Price < 0:
		res.Error = "Price cannot be negative"
		return res
	}

	active := true
	coins, err := h.r.Coins(ctx, userID, m.CoinFilter{Active: &active, Symbol: symbol})
	if err != nil {
		h.lg.Error().Err(err).Str("symbol", symbol).Msg("Failed to load holdings for price update")
		res.Error = "Failed to update price"
		return res
	}

	var updated int64
	for _, coin := range coins {
		next := valuation.Reprice(coin, *entry.Price, now)
		_, err := h.w.UpdateCoin(ctx, coin.ID, userID, m.Fields{
			"currentPrice":         next.CurrentPrice,
			"currentValue":         next.CurrentValue,
			"profitLoss":           next.ProfitLoss,
			"profitLossPercentage": next.ProfitLossPercentage,
			"totalInvested":        next.TotalInvested,
			"lastPriceUpdate":      now,
			"updatedAt":            now,
		})
		if err != nil {
			h.lg.Error().Err(err).Str("symbol", symbol).Str("coinId", coin.ID.String()).Msg("Failed to update price")
			res.Error = "Failed to update price"
			res.UpdatedCount = &updated
			return res
		}
		updated++
	}

	res.Success = true
	res.UpdatedCount = &updated
	return res
}
