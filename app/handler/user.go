package handler

import (
	"errors"
	"os"
	"strings"
	"time"

	m "coinfolio/internal/model"
	"coinfolio/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const maxPageSize = 100

type UserHandler struct {
	ur     UserRetriever
	uw     UserWriter
	cw     CoinWriter
	hasher PasswordHasher
	lg     zerolog.Logger
}

func NewUserHandler(ur UserRetriever, uw UserWriter, cw CoinWriter, hasher PasswordHasher) *UserHandler {
	return &UserHandler{
		ur:     ur,
		uw:     uw,
		cw:     cw,
		hasher: hasher,
		lg:     zerolog.New(os.Stdout).With().Str("Module", "UserHandler").Timestamp().Logger(),
	}
}

func (h *UserHandler) InitRoute(router fiber.Router, guards ...fiber.Handler) {

	r := router.Group("/users", guards...)

	r.Get("/", h.Users)
	r.Post("/", h.CreateUser)
	r.Get("/:id", h.User)
	r.Put("/:id", h.UpdateUser)
	r.Delete("/:id", h.DeleteUser)
}

// Users lists every user newest first. page and limit switch on pagination.
func (h *UserHandler) Users(c *fiber.Ctx) error {

	page := m.Page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", 0)}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 0 {
		page.Limit = 0
	}
	if page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}

	users, total, err := h.ur.Users(c.UserContext(), page)
	if err != nil {
		return m.Internal("Failed to fetch users", err)
	}

	resp := Response{
		Success: true,
		Data:    users,
		Message: "Users retrieved successfully",
	}
	if page.Limit > 0 {
		resp.Pagination = NewPagination(page.Page, page.Limit, total)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *UserHandler) User(c *fiber.Ctx) error {

	id, err := paramID(c, "user")
	if err != nil {
		return err
	}

	user, err := h.ur.UserByID(c.UserContext(), id)
	if err != nil {
		return userLookupErr(err, "Failed to fetch user")
	}

	return respond(c, fiber.StatusOK, user, "User retrieved successfully")
}

func (h *UserHandler) CreateUser(c *fiber.Ctx) error {

	var req CreateUserReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err := validCheck(validate.Merge(
		validate.Email(req.Email),
		validate.Username(req.Username),
		validate.Password(req.Password),
		validate.Struct(req, metaMessages),
	))
	if err != nil {
		return err
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		d, err := parseDate(req.DateOfBirth)
		if err != nil {
			return m.Validation("Validation failed", "Invalid date of birth")
		}
		dob = &d
	}

	ctx := c.UserContext()
	_, err = h.ur.UserByEmailOrUsername(ctx, req.Email, req.Username)
	switch {
	case err == nil:
		return m.Conflict("User already exists", "User with this username or email already exists")
	case !errors.Is(err, m.ErrNotFound):
		return m.Internal("Failed to create user", err)
	}

	digest, err := h.hasher.HashPassword(req.Password)
	if err != nil {
		return m.Internal("Failed to create user", err)
	}

	now := time.Now().UTC()
	user := &m.User{
		Email:        req.Email,
		Username:     req.Username,
		Password:     digest,
		FullName:     req.FullName,
		Bio:          req.Bio,
		Phone:        req.Phone,
		Address:      req.Address,
		DateOfBirth:  dob,
		Country:      req.Country,
		City:         req.City,
		ProfileImage: req.ProfileImage,
		CoverImage:   req.CoverImage,
		Preferences:  m.DefaultPreferences(),
		Role:         m.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.SocialLinks != nil {
		user.SocialLinks = *req.SocialLinks
	}
	if req.Preferences != nil {
		user.Preferences = *req.Preferences
	}
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := h.uw.InsertUser(ctx, user); err != nil {
		if errors.Is(err, m.ErrConflict) {
			return m.Conflict("User already exists", "User with this username or email already exists")
		}
		return m.Internal("Failed to create user", err)
	}

	h.lg.Info().Str("userId", user.ID.String()).Str("role", user.Role).Msg("User created")
	return respond(c, fiber.StatusCreated, user, "User created successfully")
}

func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {

	id, err := paramID(c, "user")
	if err != nil {
		return err
	}

	var req UpdateUserReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	checks := []validate.Result{validate.Struct(req, metaMessages)}
	if req.Email != nil {
		checks = append(checks, validate.Email(*req.Email))
	}
	if req.Username != nil {
		checks = append(checks, validate.Username(*req.Username))
	}
	if req.Password != nil {
		checks = append(checks, validate.Password(*req.Password))
	}
	if err := validCheck(validate.Merge(checks...)); err != nil {
		return err
	}

	ctx := c.UserContext()
	if _, err := h.ur.UserByID(ctx, id); err != nil {
		return userLookupErr(err, "Failed to update user")
	}

	fields, err := h.userFields(req)
	if err != nil {
		return m.Internal("Failed to update user", err)
	}

	if req.Email != nil || req.Username != nil {
		taken, err := h.ur.UserTaken(ctx, id, deref(req.Email), deref(req.Username))
		if err != nil {
			return m.Internal("Failed to update user", err)
		}
		if taken {
			return m.Conflict("User already exists", "Email or username already exists")
		}
	}

	updated, err := h.uw.UpdateUser(ctx, id, fields)
	if err != nil {
		if errors.Is(err, m.ErrConflict) {
			return m.Conflict("User already exists", "Email or username already exists")
		}
		return userLookupErr(err, "Failed to update user")
	}

	return respond(c, fiber.StatusOK, updated, "User updated successfully")
}

// DeleteUser removes the user's coins first, then the user.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {

	id, err := paramID(c, "user")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if _, err := h.ur.UserByID(ctx, id); err != nil {
		return userLookupErr(err, "Failed to delete user")
	}

	removed, err := h.cw.DeleteCoinsByOwner(ctx, id)
	if err != nil {
		return m.Internal("Failed to delete user", err)
	}

	if err := h.uw.DeleteUser(ctx, id); err != nil {
		return userLookupErr(err, "Failed to delete user")
	}

	h.lg.Info().Str("userId", id.String()).Int64("coins", removed).Msg("User deleted")
	return respond(c, fiber.StatusOK, nil, "User and associated data deleted successfully")
}

func (h *UserHandler) userFields(req UpdateUserReq) (m.Fields, error) {
	fields := m.Fields{"updatedAt": time.Now().UTC()}

	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	setString("email", req.Email)
	setString("username", req.Username)
	setString("fullName", req.FullName)
	setString("bio", req.Bio)
	setString("phone", req.Phone)
	setString("address", req.Address)
	setString("country", req.Country)
	setString("city", req.City)
	setString("avatar", req.Avatar)
	setString("profileImage", req.ProfileImage)
	setString("coverImage", req.CoverImage)

	if req.Role != nil {
		fields["role"] = strings.ToLower(*req.Role)
	}
	if req.IsActive != nil {
		fields["isActive"] = *req.IsActive
	}
	if req.IsVerified != nil {
		fields["isVerified"] = *req.IsVerified
	}
	if req.SocialLinks != nil {
		fields["socialLinks"] = *req.SocialLinks
	}
	if req.Preferences != nil {
		fields["preferences"] = *req.Preferences
	}
	if req.Password != nil {
		digest, err := h.hasher.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = digest
	}
	return fields, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userLookupErr(err error, detail string) error {
	if errors.Is(err, m.ErrNotFound) {
		return m.NotFound("User not found")
	}
	return m.Internal(detail, err)
}
