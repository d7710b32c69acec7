package handler

import (
	"errors"
	"strings"
	"time"

	m "coinfolio/internal/model"
	"coinfolio/internal/validate"

	"github.com/gofiber/fiber/v2"
)

/***************************************************************** request ****************************************************************/

type RegisterReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateCoinReq struct {
	Symbol          string           `json:"symbol"`
	Name            string           `json:"name"`
	Quantity        *float64         `json:"quantity"`
	AverageBuyPrice *float64         `json:"averageBuyPrice"`
	CurrentPrice    *float64         `json:"currentPrice"`
	Note            string           `json:"note"`
	PurchaseDate    string           `json:"purchaseDate"`
	IsActive        *bool            `json:"isActive"`
	Logo            string           `json:"logo"`
	CoinGeckoID     string           `json:"coinGeckoId"`
	Website         string           `json:"website"`
	Category        string           `json:"category"`
	Tags            []string         `json:"tags"`
	Description     string           `json:"description"`
	RiskLevel       string           `json:"riskLevel" validate:"riskLevel"`
	InvestmentGoal  string           `json:"investmentGoal" validate:"investmentGoal"`
	AlertSettings   *m.AlertSettings `json:"alertSettings"`
}

// UpdateCoinReq is partial: nil means the field was not sent.
type UpdateCoinReq struct {
	Symbol          *string          `json:"symbol"`
	Name            *string          `json:"name"`
	Quantity        *float64         `json:"quantity"`
	AverageBuyPrice *float64         `json:"averageBuyPrice"`
	CurrentPrice    *float64         `json:"currentPrice"`
	Note            *string          `json:"note"`
	PurchaseDate    *string          `json:"purchaseDate"`
	IsActive        *bool            `json:"isActive"`
	Logo            *string          `json:"logo"`
	CoinGeckoID     *string          `json:"coinGeckoId"`
	Website         *string          `json:"website"`
	Category        *string          `json:"category"`
	Tags            []string         `json:"tags"`
	Description     *string          `json:"description"`
	RiskLevel       *string          `json:"riskLevel" validate:"omitempty,riskLevel"`
	InvestmentGoal  *string          `json:"investmentGoal" validate:"omitempty,investmentGoal"`
	AlertSettings   *m.AlertSettings `json:"alertSettings"`
}

type BuyCoinReq struct {
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Price    float64 `json:"price" validate:"gt=0"`
}

type PriceEntry struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}

type UpdatePricesReq struct {
	Prices []PriceEntry `json:"prices"`
}

type CreateUserReq struct {
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	FullName     string         `json:"fullName"`
	Bio          string         `json:"bio"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	DateOfBirth  string         `json:"dateOfBirth"`
	Country      string         `json:"country"`
	City         string         `json:"city"`
	ProfileImage string         `json:"profileImage"`
	CoverImage   string         `json:"coverImage"`
	SocialLinks  *m.SocialLinks `json:"socialLinks"`
	Preferences  *m.Preferences `json:"preferences"`
	Role         string         `json:"role" validate:"omitempty,oneof=user admin"`
}

type UpdateUserReq struct {
	Email        *string        `json:"email"`
	Username     *string        `json:"username"`
	Password     *string        `json:"password"`
	FullName     *string        `json:"fullName"`
	Bio          *string        `json:"bio"`
	Phone        *string        `json:"phone"`
	Address      *string        `json:"address"`
	Country      *string        `json:"country"`
	City         *string        `json:"city"`
	Avatar       *string        `json:"avatar"`
	ProfileImage *string        `json:"profileImage"`
	CoverImage   *string        `json:"coverImage"`
	SocialLinks  *m.SocialLinks `json:"socialLinks"`
	Preferences  *m.Preferences `json:"preferences"`
	Role         *string        `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive     *bool          `json:"isActive"`
	IsVerified   *bool          `json:"isVerified"`
}

var metaMessages = map[string]map[string]string{
	"riskLevel":      {"riskLevel": "Invalid risk level"},
	"investmentGoal": {"investmentGoal": "Invalid investment goal"},
	"role":           {"oneof": "Role must be user or admin"},
	"quantity":       {"gt": "Quantity must be greater than 0"},
	"price":          {"gt": "Price must be greater than 0"},
}

/***************************************************************** response ****************************************************************/

type authUser struct {
	ID        m.ID      `json:"_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newAuthUser(u *m.User) authUser {
	return authUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		Avatar:    u.Avatar,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type authResp struct {
	User  authUser `json:"user"`
	Token string   `json:"token"`
}

type priceResult struct {
	Symbol       string `json:"symbol"`
	Success      bool   `json:"success"`
	UpdatedCount *int64 `json:"updatedCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

type priceUpdateResp struct {
	UpdateResults []priceResult `json:"updateResults"`
}

/***************************************************************** helpers ****************************************************************/

func validCheck(r validate.Result) error {
	if r.Valid {
		return nil
	}
	return m.Validation("Validation failed", r.Message())
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return m.Validation("Invalid request", "Request body must be valid JSON")
	}
	return nil
}

// paramID reads the :id route param; what names the record in the error.
func paramID(c *fiber.Ctx, what string) (m.ID, error) {
	id, err := m.ParseID(c.Params("id"))
	if err != nil {
		return "", m.Validation("Invalid "+what+" ID", "")
	}
	return id, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.DateOnly}

var errDate = errors.New("unrecognised date")

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errDate
}
