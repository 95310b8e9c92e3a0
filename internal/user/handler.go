package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/redmonkez12/storefront-users/internal/httputil"
	"github.com/redmonkez12/storefront-users/internal/logging"
)

const (
	msgUserNotFound      = "User Not Found"
	msgCannotDeleteAdmin = "Can Not Delete Admin User"
)

// Handler contains HTTP handlers for user lookups and administration
type Handler struct {
	service     *Service
	seedEnabled bool
}

func NewHandler(service *Service, seedEnabled bool) *Handler {
	return &Handler{
		service:     service,
		seedEnabled: seedEnabled,
	}
}

// AdminUpdateRequest is the body of PUT /api/users/{id}.
// Omitted fields keep their value; isAdmin and isSeller apply when present, even when false.
type AdminUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"isAdmin"`
	IsSeller *bool   `json:"isSeller"`
}

func (r AdminUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Length(0, 254), is.Email),
	)
}

// SeedResponse lists the accounts created by the seed endpoint
type SeedResponse struct {
	CreatedUsers []PublicUser `json:"createdUsers"`
}

// UserMessageResponse acknowledges an admin action on a user
type UserMessageResponse struct {
	Message string     `json:"message"`
	User    PublicUser `json:"user"`
}

// Seed handles fixture import
// @Summary      Seed fixture users
// @Description  Insert the bundled fixture accounts. Only available when seeding is enabled.
// @Tags         users
// @Produce      json
// @Success      200 {object} SeedResponse
// @Failure      404 {object} httputil.ErrorResponse "Seeding disabled"
// @Failure      409 {object} httputil.ErrorResponse "Fixtures already present"
// @Router       /api/users/seed [get]
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.seedEnabled {
		httputil.RespondErrorWithCode(w, "Not Found", httputil.CodeSeedDisabled, http.StatusNotFound)
		return
	}

	created, err := h.service.Seed(r.Context())
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Warn("seed failed: fixtures already present")
			httputil.RespondErrorWithCode(w, "fixture users already exist", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("seed failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to seed users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, SeedResponse{CreatedUsers: PublicUsers(created)}, http.StatusOK)
}

// GetByID handles lookup by internal id
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} PublicUser
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, "get user", err)
		return
	}

	httputil.RespondJSON(w, u.Public(), http.StatusOK)
}

// GetSeller handles lookup by storefront url
// @Summary      Get seller by storefront url
// @Tags         users
// @Produce      json
// @Param        id path string true "Seller storefront url"
// @Success      200 {object} PublicUser
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/users/{id}/seller [get]
func (h *Handler) GetSeller(w http.ResponseWriter, r *http.Request) {
	sellerURL, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusNotFound)
		return
	}

	u, err := h.service.GetSeller(r.Context(), sellerURL)
	if err != nil {
		h.respondServiceError(w, r, "get seller", err)
		return
	}

	httputil.RespondJSON(w, u.Public(), http.StatusOK)
}

// List handles the admin user listing
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} PublicUser
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /api/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "list users", err)
		return
	}

	httputil.RespondJSON(w, PublicUsers(users), http.StatusOK)
}

// Update handles admin edits
// @Summary      Edit user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body AdminUpdateRequest true "Fields to change"
// @Success      200 {object} UserMessageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /api/users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req AdminUpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid admin update request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), id, AdminUpdate{
		Name:     req.Name,
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
		IsSeller: req.IsSeller,
	})
	if err != nil {
		h.respondServiceError(w, r, "update user", err)
		return
	}

	logger.Info("user updated by admin", "user_id", updated.ID, "roles", updated.Roles.String())

	httputil.RespondJSON(w, UserMessageResponse{Message: "User Updated", User: updated.Public()}, http.StatusOK)
}

// Delete handles admin deletion
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} UserMessageResponse
// @Failure      403 {object} httputil.ErrorResponse "Protected admin account"
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProtectedAccount) {
			logger.Warn("refused to delete protected admin account", "user_id", id)
			httputil.RespondErrorWithCode(w, msgCannotDeleteAdmin, httputil.CodeProtectedAccount, http.StatusForbidden)
			return
		}
		h.respondServiceError(w, r, "delete user", err)
		return
	}

	logger.Info("user deleted", "user_id", deleted.ID)

	httputil.RespondJSON(w, UserMessageResponse{Message: "User Deleted", User: deleted.Public()}, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, ErrDuplicateEmail):
		logger.Warn(op+" failed: email already exists")
		httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
	default:
		logger.Error(op+" failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// parseID reads the {id} path parameter; a malformed id cannot exist, so it is a 404
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}
