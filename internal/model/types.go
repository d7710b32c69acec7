package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
)

/*
memo. bson, json and gorm column names are kept identical (camelCase) so a
single Fields map can be applied by both the mongo and the sql storage.
*/

type User struct {
	ID           ID          `bson:"_id,omitempty" json:"_id" gorm:"column:_id;primaryKey;type:char(24)"`
	Email        string      `bson:"email" json:"email" gorm:"column:email;type:varchar(255);uniqueIndex"`
	Username     string      `bson:"username" json:"username" gorm:"column:username;type:varchar(64);uniqueIndex"`
	Password     string      `bson:"password" json:"-" gorm:"column:password"`
	FullName     string      `bson:"fullName" json:"fullName" gorm:"column:fullName"`
	Avatar       string      `bson:"avatar" json:"avatar" gorm:"column:avatar"`
	Bio          string      `bson:"bio,omitempty" json:"bio,omitempty" gorm:"column:bio"`
	Phone        string      `bson:"phone,omitempty" json:"phone,omitempty" gorm:"column:phone"`
	Address      string      `bson:"address,omitempty" json:"address,omitempty" gorm:"column:address"`
	DateOfBirth  *time.Time  `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty" gorm:"column:dateOfBirth"`
	Country      string      `bson:"country,omitempty" json:"country,omitempty" gorm:"column:country"`
	City         string      `bson:"city,omitempty" json:"city,omitempty" gorm:"column:city"`
	ProfileImage string      `bson:"profileImage,omitempty" json:"profileImage,omitempty" gorm:"column:profileImage"`
	CoverImage   string      `bson:"coverImage,omitempty" json:"coverImage,omitempty" gorm:"column:coverImage"`
	SocialLinks  SocialLinks `bson:"socialLinks" json:"socialLinks" gorm:"column:socialLinks;type:json"`
	Preferences  Preferences `bson:"preferences" json:"preferences" gorm:"column:preferences;type:json"`
	Role         string      `bson:"role" json:"role" gorm:"column:role;default:user"`
	IsActive     bool        `bson:"isActive" json:"isActive" gorm:"column:isActive"`
	IsVerified   bool        `bson:"isVerified" json:"isVerified" gorm:"column:isVerified"`
	LastLoginAt  *time.Time  `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty" gorm:"column:lastLoginAt"`
	CreatedAt    time.Time   `bson:"createdAt" json:"createdAt" gorm:"column:createdAt"`
	UpdatedAt    time.Time   `bson:"updatedAt" json:"updatedAt" gorm:"column:updatedAt"`
}

func (User) TableName() string { return "users" }

type SocialLinks struct {
	Twitter  string `bson:"twitter,omitempty" json:"twitter,omitempty"`
	Linkedin string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Github   string `bson:"github,omitempty" json:"github,omitempty"`
	Website  string `bson:"website,omitempty" json:"website,omitempty"`
}

func (s SocialLinks) Value() (driver.Value, error) { return jsonValue(s) }
func (s *SocialLinks) Scan(src any) error         { return jsonScan(src, s) }

type Notifications struct {
	Email bool `bson:"email" json:"email"`
	Push  bool `bson:"push" json:"push"`
	Sms   bool `bson:"sms" json:"sms"`
}

type Preferences struct {
	Currency      string        `bson:"currency,omitempty" json:"currency,omitempty"`
	Language      string        `bson:"language,omitempty" json:"language,omitempty"`
	Theme         string        `bson:"theme,omitempty" json:"theme,omitempty"`
	Notifications Notifications `bson:"notifications" json:"notifications"`
}

func (p Preferences) Value() (driver.Value, error) { return jsonValue(p) }
func (p *Preferences) Scan(src any) error         { return jsonScan(src, p) }

func DefaultPreferences() Preferences {
	return Preferences{
		Currency: "USD",
		Language: "en",
		Theme:    "dark",
		Notifications: Notifications{
			Email: true,
			Push:  true,
			Sms:   false,
		},
	}
}

// Coin is a holding: one user's position in one asset.
type Coin struct {
	ID                   ID                          `bson:"_id,omitempty" json:"_id" gorm:"column:_id;primaryKey;type:char(24)"`
	UserID               ID                          `bson:"userId" json:"userId" gorm:"column:userId;type:char(24);index:idx_coin_user_symbol,priority:1;index:idx_coin_user_active,priority:1"`
	Symbol               string                      `bson:"symbol" json:"symbol" gorm:"column:symbol;type:varchar(10);index:idx_coin_user_symbol,priority:2"`
	Name                 string                      `bson:"name" json:"name" gorm:"column:name;type:varchar(100)"`
	Quantity             float64                     `bson:"quantity" json:"quantity" gorm:"column:quantity"`
	AverageBuyPrice      float64                     `bson:"averageBuyPrice" json:"averageBuyPrice" gorm:"column:averageBuyPrice"`
	CurrentPrice         Optional[float64]           `bson:"currentPrice,omitempty" json:"currentPrice" gorm:"column:currentPrice;type:double"`
	TotalInvested        float64                     `bson:"totalInvested" json:"totalInvested" gorm:"column:totalInvested"`
	CurrentValue         float64                     `bson:"currentValue" json:"currentValue" gorm:"column:currentValue"`
	ProfitLoss           float64                     `bson:"profitLoss" json:"profitLoss" gorm:"column:profitLoss"`
	ProfitLossPercentage float64                     `bson:"profitLossPercentage" json:"profitLossPercentage" gorm:"column:profitLossPercentage"`
	Note                 string                      `bson:"note" json:"note" gorm:"column:note"`
	PurchaseDate         time.Time                   `bson:"purchaseDate" json:"purchaseDate" gorm:"column:purchaseDate"`
	LastPriceUpdate      *time.Time                  `bson:"lastPriceUpdate,omitempty" json:"lastPriceUpdate,omitempty" gorm:"column:lastPriceUpdate"`
	IsActive             bool                        `bson:"isActive" json:"isActive" gorm:"column:isActive;index:idx_coin_user_active,priority:2"`
	Logo                 string                      `bson:"logo" json:"logo" gorm:"column:logo"`
	CoinGeckoID          string                      `bson:"coinGeckoId" json:"coinGeckoId" gorm:"column:coinGeckoId"`
	MarketCap            float64                     `bson:"marketCap" json:"marketCap" gorm:"column:marketCap"`
	Rank                 int                         `bson:"rank" json:"rank" gorm:"column:rank"`
	Volume24h            float64                     `bson:"volume24h" json:"volume24h" gorm:"column:volume24h"`
	PriceChange24h       float64                     `bson:"priceChange24h" json:"priceChange24h" gorm:"column:priceChange24h"`
	PriceChange7d        float64                     `bson:"priceChange7d" json:"priceChange7d" gorm:"column:priceChange7d"`
	AllTimeHigh          float64                     `bson:"allTimeHigh" json:"allTimeHigh" gorm:"column:allTimeHigh"`
	AllTimeLow           float64                     `bson:"allTimeLow" json:"allTimeLow" gorm:"column:allTimeLow"`
	CirculatingSupply    float64                     `bson:"circulatingSupply" json:"circulatingSupply" gorm:"column:circulatingSupply"`
	TotalSupply          float64                     `bson:"totalSupply" json:"totalSupply" gorm:"column:totalSupply"`
	MaxSupply            float64                     `bson:"maxSupply" json:"maxSupply" gorm:"column:maxSupply"`
	Website              string                      `bson:"website" json:"website" gorm:"column:website"`
	Whitepaper           string                      `bson:"whitepaper" json:"whitepaper" gorm:"column:whitepaper"`
	Explorer             string                      `bson:"explorer" json:"explorer" gorm:"column:explorer"`
	Github               string                      `bson:"github" json:"github" gorm:"column:github"`
	Category             string                      `bson:"category" json:"category" gorm:"column:category"`
	Tags                 datatypes.JSONSlice[string] `bson:"tags" json:"tags" gorm:"column:tags"`
	Description          string                      `bson:"description" json:"description" gorm:"column:description"`
	RiskLevel            RiskLevel                   `bson:"riskLevel" json:"riskLevel" gorm:"column:riskLevel;type:varchar(16)"`
	InvestmentGoal       InvestmentGoal              `bson:"investmentGoal" json:"investmentGoal" gorm:"column:investmentGoal;type:varchar(16)"`
	AlertSettings        AlertSettings               `bson:"alertSettings" json:"alertSettings" gorm:"column:alertSettings;type:json"`
	CreatedAt            time.Time                   `bson:"createdAt" json:"createdAt" gorm:"column:createdAt"`
	UpdatedAt            time.Time                   `bson:"updatedAt" json:"updatedAt" gorm:"column:updatedAt"`
}

func (Coin) TableName() string { return "coins" }

type AlertSettings struct {
	PriceTargetHigh       Optional[float64] `bson:"priceTargetHigh,omitempty" json:"priceTargetHigh,omitempty"`
	PriceTargetLow        Optional[float64] `bson:"priceTargetLow,omitempty" json:"priceTargetLow,omitempty"`
	PercentageChangeAlert Optional[float64] `bson:"percentageChangeAlert,omitempty" json:"percentageChangeAlert,omitempty"`
}

func (a AlertSettings) Value() (driver.Value, error) { return jsonValue(a) }
func (a *AlertSettings) Scan(src any) error         { return jsonScan(src, a) }

// Fields is a partial update keyed by stored field name.
type Fields map[string]any

// CoinFilter narrows a user's coin listing. Sort must be a stored field name.
type CoinFilter struct {
	Active *bool
	Symbol string
	Sort   string
	Desc   bool
}

// Page is 1-based; Limit 0 means everything.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type Performer struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	ProfitLossPercentage float64 `json:"profitLossPercentage"`
}

// Portfolio is derived from a user's active coins on every read.
type Portfolio struct {
	UserID                    ID         `json:"userId"`
	TotalInvested             float64    `json:"totalInvested"`
	CurrentValue              float64    `json:"currentValue"`
	TotalProfitLoss           float64    `json:"totalProfitLoss"`
	TotalProfitLossPercentage float64    `json:"totalProfitLossPercentage"`
	CoinCount                 int        `json:"coinCount"`
	TopPerformer              *Performer `json:"topPerformer,omitempty"`
	WorstPerformer            *Performer `json:"worstPerformer,omitempty"`
	LastUpdated               time.Time  `json:"lastUpdated"`
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}
