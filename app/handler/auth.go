package handler

import (
	"errors"
	"os"
	"strings"
	"time"

	"coinfolio/internal/auth"
	m "coinfolio/internal/model"
	"coinfolio/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const localUser = "user"

type AuthHandler struct {
	ur     UserRetriever
	uw     UserWriter
	hasher PasswordHasher
	issuer TokenIssuer
	verif  TokenVerifier
	lg     zerolog.Logger
}

func NewAuthHandler(ur UserRetriever, uw UserWriter, hasher PasswordHasher, issuer TokenIssuer, verif TokenVerifier) *AuthHandler {
	return &AuthHandler{
		ur:     ur,
		uw:     uw,
		hasher: hasher,
		issuer: issuer,
		verif:  verif,
		lg:     zerolog.New(os.Stdout).With().Str("Module", "AuthHandler").Timestamp().Logger(),
	}
}

func (h *AuthHandler) InitRoute(router fiber.Router) {

	r := router.Group("/auth")

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Authenticate, h.Logout)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {

	var req RegisterReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err := validCheck(validate.Merge(
		validate.Email(req.Email),
		validate.Username(req.Username),
		validate.Password(req.Password),
	))
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	existing, err := h.ur.UserByEmailOrUsername(ctx, req.Email, req.Username)
	switch {
	case err == nil:
		if existing.Email == req.Email {
			return m.Conflict("User already exists", "Email already registered")
		}
		return m.Conflict("User already exists", "Username already taken")
	case !errors.Is(err, m.ErrNotFound):
		return m.Internal("Failed to register user", err)
	}

	digest, err := h.hasher.HashPassword(req.Password)
	if err != nil {
		return m.Internal("Failed to register user", err)
	}

	now := time.Now().UTC()
	user := &m.User{
		Email:       req.Email,
		Username:    req.Username,
		Password:    digest,
		FullName:    req.FullName,
		Preferences: m.DefaultPreferences(),
		Role:        m.RoleUser,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.uw.InsertUser(ctx, user); err != nil {
		if errors.Is(err, m.ErrConflict) {
			return m.Conflict("User already exists", "Email or username already registered")
		}
		return m.Internal("Failed to register user", err)
	}

	token, _, err := h.issuer.IssueToken(user.ID)
	if err != nil {
		return m.Internal("Failed to register user", err)
	}

	h.lg.Info().Str("userId", user.ID.String()).Msg("User registered")
	return respond(c, fiber.StatusCreated, authResp{User: newAuthUser(user), Token: token}, "User registered successfully")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {

	var req LoginReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err := validCheck(validate.Merge(
		validate.Email(req.Email),
		validate.Password(req.Password),
	))
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	user, err := h.ur.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, m.ErrNotFound) {
			return m.Unauthenticated("Invalid credentials", "Email or password is incorrect")
		}
		return m.Internal("Failed to login", err)
	}

	if !user.IsActive {
		return m.Unauthenticated("Account disabled", "Your account has been disabled")
	}

	if !h.hasher.VerifyPassword(req.Password, user.Password) {
		return m.Unauthenticated("Invalid credentials", "Email or password is incorrect")
	}

	token, _, err := h.issuer.IssueToken(user.ID)
	if err != nil {
		return m.Internal("Failed to login", err)
	}

	now := time.Now().UTC()
	if _, err := h.uw.UpdateUser(ctx, user.ID, m.Fields{"lastLoginAt": now, "updatedAt": now}); err != nil {
		h.lg.Warn().Err(err).Str("userId", user.ID.String()).Msg("Failed to record last login")
	}

	return respond(c, fiber.StatusOK, authResp{User: newAuthUser(user), Token: token}, "Login successful")
}

// Logout only acknowledges; tokens are discarded client side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, nil, "Logout successful")
}

// Authenticate resolves the bearer token to an active user and stores it in
// the request locals.
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {

	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return m.Unauthenticated("No token provided", "")
	}

	id, err := h.verif.VerifyToken(token)
	if err != nil {
		return m.Unauthenticated("Invalid or expired token", "")
	}

	user, err := h.ur.UserByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, m.ErrNotFound) {
			return m.Unauthenticated("User not found or inactive", "")
		}
		return m.Internal("Authentication failed", err)
	}
	if !user.IsActive {
		return m.Unauthenticated("User not found or inactive", "")
	}

	c.Locals(localUser, user)
	return c.Next()
}

// RequireAdmin must run after Authenticate.
func (h *AuthHandler) RequireAdmin(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil || !strings.EqualFold(user.Role, m.RoleAdmin) {
		return m.Forbidden("Admin access required")
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) *m.User {
	user, _ := c.Locals(localUser).(*m.User)
	return user
}

func currentUserID(c *fiber.Ctx) m.ID {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return ""
}
