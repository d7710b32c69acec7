package handler

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	m "coinfolio/internal/model"
	"coinfolio/internal/validate"
	"coinfolio/internal/valuation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type CoinHandler struct {
	r  CoinRetriever
	w  CoinWriter
	lg zerolog.Logger
}

func NewCoinHandler(r CoinRetriever, w CoinWriter) *CoinHandler {
	return &CoinHandler{
		r:  r,
		w:  w,
		lg: zerolog.New(os.Stdout).With().Str("Module", "CoinHandler").Timestamp().Logger(),
	}
}

func (h *CoinHandler) InitRoute(router fiber.Router, guards ...fiber.Handler) {

	r := router.Group("/coins", guards...)

	r.Get("/", h.Coins)
	r.Post("/", h.AddCoin)
	r.Get("/:id", h.Coin)
	r.Put("/:id", h.UpdateCoin)
	r.Delete("/:id", h.DeleteCoin)
	r.Post("/:id/buy", h.BuyCoin)
}

func (h *CoinHandler) Coins(c *fiber.Ctx) error {

	filter := m.CoinFilter{
		Sort: c.Query("sort", "createdAt"),
		Desc: c.Query("order", "desc") != "asc",
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}

	coins, err := h.r.Coins(c.UserContext(), currentUserID(c), filter)
	if err != nil {
		return m.Internal("Failed to get coins", err)
	}

	for i := range coins {
		coins[i] = withValuation(coins[i])
	}

	total := len(coins)
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Data:    coins,
		Total:   &total,
	})
}

func (h *CoinHandler) Coin(c *fiber.Ctx) error {

	id, err := paramID(c, "coin")
	if err != nil {
		return err
	}

	coin, err := h.r.CoinByID(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return coinLookupErr(err, "Failed to get coin")
	}

	return respond(c, fiber.StatusOK, withValuation(*coin), "")
}

func (h *CoinHandler) AddCoin(c *fiber.Ctx) error {

	var req CreateCoinReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err := validCheck(validate.Merge(
		validate.Coin(validate.CoinInput{
			Symbol:          req.Symbol,
			Name:            req.Name,
			Quantity:        req.Quantity,
			AverageBuyPrice: req.AverageBuyPrice,
			CurrentPrice:    req.CurrentPrice,
		}),
		validate.Struct(req, metaMessages),
	))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	purchaseDate := now
	if req.PurchaseDate != "" {
		purchaseDate, err = parseDate(req.PurchaseDate)
		if err != nil {
			return m.Validation("Validation failed", "Invalid purchase date")
		}
	}

	userID := currentUserID(c)
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	ctx := c.UserContext()

	_, err = h.r.ActiveCoinBySymbol(ctx, userID, symbol)
	switch {
	case err == nil:
		return duplicateCoin(symbol)
	case !errors.Is(err, m.ErrNotFound):
		return m.Internal("Failed to create coin", err)
	}

	coin := m.Coin{
		UserID:          userID,
		Symbol:          symbol,
		Name:            strings.TrimSpace(req.Name),
		Quantity:        *req.Quantity,
		AverageBuyPrice: *req.AverageBuyPrice,
		CurrentPrice:    m.FromPtr(req.CurrentPrice),
		Note:            req.Note,
		PurchaseDate:    purchaseDate,
		IsActive:        req.IsActive == nil || *req.IsActive,
		Logo:            req.Logo,
		CoinGeckoID:     req.CoinGeckoID,
		Website:         req.Website,
		Category:        req.Category,
		Tags:            req.Tags,
		Description:     req.Description,
		RiskLevel:       m.RiskMedium,
		InvestmentGoal:  m.LongTerm,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if coin.Tags == nil {
		coin.Tags = []string{}
	}
	if req.RiskLevel != "" {
		coin.RiskLevel = m.RiskLevel(req.RiskLevel)
	}
	if req.InvestmentGoal != "" {
		coin.InvestmentGoal = m.InvestmentGoal(req.InvestmentGoal)
	}
	if req.AlertSettings != nil {
		coin.AlertSettings = *req.AlertSettings
	}
	if coin.CurrentPrice.IsSet() {
		coin.LastPriceUpdate = &now
	}
	coin = valuation.Recompute(coin)

	if err := h.w.InsertCoin(ctx, &coin); err != nil {
		if errors.Is(err, m.ErrConflict) {
			return duplicateCoin(symbol)
		}
		return m.Internal("Failed to create coin", err)
	}

	h.lg.Info().Str("userId", userID.String()).Str("symbol", symbol).Msg("Coin added")
	return respond(c, fiber.StatusCreated, coin, "Coin added successfully")
}

func (h *CoinHandler) UpdateCoin(c *fiber.Ctx) error {

	id, err := paramID(c, "coin")
	if err != nil {
		return err
	}

	var req UpdateCoinReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := validCheck(req.check()); err != nil {
		return err
	}

	userID := currentUserID(c)
	ctx := c.UserContext()

	existing, err := h.r.CoinByID(ctx, id, userID)
	if err != nil {
		return coinLookupErr(err, "Failed to update coin")
	}

	now := time.Now().UTC()
	next, fields, err := req.apply(*existing, now)
	if err != nil {
		return err
	}

	// the symbol or active flag may now clash with another active holding
	if next.IsActive && (next.Symbol != existing.Symbol || !existing.IsActive) {
		other, err := h.r.ActiveCoinBySymbol(ctx, userID, next.Symbol)
		switch {
		case err == nil && other.ID != id:
			return duplicateCoin(next.Symbol)
		case err != nil && !errors.Is(err, m.ErrNotFound):
			return m.Internal("Failed to update coin", err)
		}
	}

	updated, err := h.w.UpdateCoin(ctx, id, userID, fields)
	if err != nil {
		if errors.Is(err, m.ErrConflict) {
			return duplicateCoin(next.Symbol)
		}
		return coinLookupErr(err, "Failed to update coin")
	}

	return respond(c, fiber.StatusOK, withValuation(*updated), "Coin updated successfully")
}

func (h *CoinHandler) DeleteCoin(c *fiber.Ctx) error {

	id, err := paramID(c, "coin")
	if err != nil {
		return err
	}

	userID := currentUserID(c)
	ctx := c.UserContext()

	if soft, _ := strconv.ParseBool(c.Query("soft")); soft {
		_, err := h.w.UpdateCoin(ctx, id, userID, m.Fields{"isActive": false, "updatedAt": time.Now().UTC()})
		if err != nil {
			return coinLookupErr(err, "Failed to delete coin")
		}
		return respond(c, fiber.StatusOK, nil, "Coin deactivated successfully")
	}

	if err := h.w.DeleteCoin(ctx, id, userID); err != nil {
		return coinLookupErr(err, "Failed to delete coin")
	}
	return respond(c, fiber.StatusOK, nil, "Coin deleted successfully")
}

// BuyCoin adds units at a price, moving the average buy price to the
// weighted average of the old and new units.
func (h *CoinHandler) BuyCoin(c *fiber.Ctx) error {

	id, err := paramID(c, "coin")
	if err != nil {
		return err
	}

	var req BuyCoinReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validCheck(validate.Struct(req, metaMessages)); err != nil {
		return err
	}

	userID := currentUserID(c)
	ctx := c.UserContext()

	existing, err := h.r.CoinByID(ctx, id, userID)
	if err != nil {
		return coinLookupErr(err, "Failed to buy coin")
	}

	avg, err := valuation.WeightedAverage(existing.Quantity, existing.AverageBuyPrice, req.Quantity, req.Price)
	if err != nil {
		return m.Validation("Validation failed", "Total quantity must be greater than 0")
	}

	next := *existing
	next.Quantity = existing.Quantity + req.Quantity
	next.AverageBuyPrice = avg
	next = valuation.Recompute(next)

	updated, err := h.w.UpdateCoin(ctx, id, userID, m.Fields{
		"quantity":             next.Quantity,
		"averageBuyPrice":      next.AverageBuyPrice,
		"totalInvested":        next.TotalInvested,
		"currentValue":         next.CurrentValue,
		"profitLoss":           next.ProfitLoss,
		"profitLossPercentage": next.ProfitLossPercentage,
		"updatedAt":            time.Now().UTC(),
	})
	if err != nil {
		return coinLookupErr(err, "Failed to buy coin")
	}

	return respond(c, fiber.StatusOK, withValuation(*updated), "Coin position increased")
}

// check runs the create rules against the sent fields, filling the
// required ones that were left out with passing placeholders.
func (req UpdateCoinReq) check() validate.Result {
	one := 1.0
	in := validate.CoinInput{
		Symbol:          "temp",
		Name:            "temp",
		Quantity:        &one,
		AverageBuyPrice: &one,
		CurrentPrice:    req.CurrentPrice,
	}
	if req.Symbol != nil {
		in.Symbol = *req.Symbol
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Quantity != nil {
		in.Quantity = req.Quantity
	}
	if req.AverageBuyPrice != nil {
		in.AverageBuyPrice = req.AverageBuyPrice
	}
	return validate.Merge(validate.Coin(in), validate.Struct(req, metaMessages))
}

// apply returns c with the sent fields applied and derived fields refreshed,
// along with the stored fields that changed.
func (req UpdateCoinReq) apply(c m.Coin, now time.Time) (m.Coin, m.Fields, error) {
	fields := m.Fields{"updatedAt": now}
	c.UpdatedAt = now

	if req.Symbol != nil {
		c.Symbol = strings.ToUpper(strings.TrimSpace(*req.Symbol))
		fields["symbol"] = c.Symbol
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
		fields["name"] = c.Name
	}
	if req.Quantity != nil {
		c.Quantity = *req.Quantity
		fields["quantity"] = c.Quantity
	}
	if req.AverageBuyPrice != nil {
		c.AverageBuyPrice = *req.AverageBuyPrice
		fields["averageBuyPrice"] = c.AverageBuyPrice
	}
	if req.CurrentPrice != nil {
		c.CurrentPrice = m.Some(*req.CurrentPrice)
		c.LastPriceUpdate = &now
		fields["currentPrice"] = c.CurrentPrice
		fields["lastPriceUpdate"] = now
	}
	if req.Note != nil {
		c.Note = *req.Note
		fields["note"] = c.Note
	}
	if req.PurchaseDate != nil {
		d, err := parseDate(*req.PurchaseDate)
		if err != nil {
			return c, nil, m.Validation("Validation failed", "Invalid purchase date")
		}
		c.PurchaseDate = d
		fields["purchaseDate"] = d
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
		fields["isActive"] = c.IsActive
	}
	if req.Logo != nil {
		c.Logo = *req.Logo
		fields["logo"] = c.Logo
	}
	if req.CoinGeckoID != nil {
		c.CoinGeckoID = *req.CoinGeckoID
		fields["coinGeckoId"] = c.CoinGeckoID
	}
	if req.Website != nil {
		c.Website = *req.Website
		fields["website"] = c.Website
	}
	if req.Category != nil {
		c.Category = *req.Category
		fields["category"] = c.Category
	}
	if req.Tags != nil {
		c.Tags = slices.Clone(req.Tags)
		fields["tags"] = c.Tags
	}
	if req.Description != nil {
		c.Description = *req.Description
		fields["description"] = c.Description
	}
	if req.RiskLevel != nil {
		c.RiskLevel = m.RiskLevel(*req.RiskLevel)
		fields["riskLevel"] = c.RiskLevel
	}
	if req.InvestmentGoal != nil {
		c.InvestmentGoal = m.InvestmentGoal(*req.InvestmentGoal)
		fields["investmentGoal"] = c.InvestmentGoal
	}
	if req.AlertSettings != nil {
		c.AlertSettings = *req.AlertSettings
		fields["alertSettings"] = c.AlertSettings
	}

	c = valuation.Recompute(c)
	fields["totalInvested"] = c.TotalInvested
	fields["currentValue"] = c.CurrentValue
	fields["profitLoss"] = c.ProfitLoss
	fields["profitLossPercentage"] = c.ProfitLossPercentage

	return c, fields, nil
}

func withValuation(c m.Coin) m.Coin {
	v := valuation.ValueOf(c)
	c.CurrentValue = v.CurrentValue
	c.ProfitLoss = v.ProfitLoss
	c.ProfitLossPercentage = v.ProfitLossPercentage
	return c
}

func duplicateCoin(symbol string) error {
	return m.Conflict("Coin already exists",
		fmt.Sprintf("You already have %s in your portfolio. Use update to modify existing coin.", symbol))
}

func coinLookupErr(err error, detail string) error {
	if errors.Is(err, m.ErrNotFound) {
		return m.NotFound("Coin not found")
	}
	return m.Internal(detail, err)
}
