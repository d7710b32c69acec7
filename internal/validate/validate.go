// Package validate checks request input and reports every violation as a
// human readable message, in field order.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("usernamechars", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("riskLevel", oneOfOrEmpty("LOW", "MEDIUM", "HIGH", "VERY_HIGH"))
	v.RegisterValidation("investmentGoal", oneOfOrEmpty("SHORT_TERM", "MEDIUM_TERM", "LONG_TERM"))

	return v
}

func oneOfOrEmpty(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

type Result struct {
	Valid  bool
	Errors []string
}

func newResult(errs []string) Result {
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Message joins the violations the way they are shown to clients.
func (r Result) Message() string {
	return strings.Join(r.Errors, ", ")
}

// Merge concatenates results keeping their order.
func Merge(results ...Result) Result {
	var errs []string
	for _, r := range results {
		errs = append(errs, r.Errors...)
	}
	return newResult(errs)
}

type rule struct {
	tag string
	msg string
}

// field reports requiredMsg alone when value is empty, otherwise every
// failing rule.
func field(value string, requiredMsg string, rules ...rule) Result {
	if validate.Var(value, "required") != nil {
		return newResult([]string{requiredMsg})
	}
	var errs []string
	for _, r := range rules {
		if validate.Var(value, r.tag) != nil {
			errs = append(errs, r.msg)
		}
	}
	return newResult(errs)
}

func Email(email string) Result {
	return field(email, "Email is required",
		rule{"emailshape", "Invalid email format"},
	)
}

func Password(password string) Result {
	return field(password, "Password is required",
		rule{"min=6", "Password must be at least 6 characters long"},
		rule{"max=100", "Password must be less than 100 characters"},
	)
}

func Username(username string) Result {
	return field(username, "Username is required",
		rule{"min=3", "Username must be at least 3 characters long"},
		rule{"max=30", "Username must be less than 30 characters"},
		rule{"usernamechars", "Username can only contain letters, numbers, and underscores"},
	)
}

// CoinInput is the shape checked on create. Nil pointers mean the field was
// not sent.
type CoinInput struct {
	Symbol          string   `json:"symbol" validate:"required,notblank,max=10"`
	Name            string   `json:"name" validate:"required,notblank,max=100"`
	Quantity        *float64 `json:"quantity" validate:"required,gt=0"`
	AverageBuyPrice *float64 `json:"averageBuyPrice" validate:"required,gt=0"`
	CurrentPrice    *float64 `json:"currentPrice" validate:"omitempty,gte=0"`
}

var coinMessages = map[string]map[string]string{
	"symbol": {
		"required": "Coin symbol is required",
		"notblank": "Coin symbol is required",
		"max":      "Coin symbol must be less than 10 characters",
	},
	"name": {
		"required": "Coin name is required",
		"notblank": "Coin name is required",
		"max":      "Coin name must be less than 100 characters",
	},
	"quantity": {
		"required": "Quantity is required",
		"gt":       "Quantity must be greater than 0",
	},
	"averageBuyPrice": {
		"required": "Average buy price is required",
		"gt":       "Average buy price must be greater than 0",
	},
	"currentPrice": {
		"gte": "Current price cannot be negative",
	},
}

func Coin(in CoinInput) Result {
	return Struct(in, coinMessages)
}

// Struct runs the validate tags of v. messages maps field and tag to the
// text reported; unmapped failures get a generic message.
func Struct(v any, messages map[string]map[string]string) Result {
	err := validate.Struct(v)
	if err == nil {
		return newResult(nil)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newResult([]string{err.Error()})
	}

	errs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := messages[fe.Field()][fe.Tag()]; ok {
			errs = append(errs, msg)
			continue
		}
		errs = append(errs, genericMessage(fe))
	}
	return newResult(errs)
}

func genericMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
