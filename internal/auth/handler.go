package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/redmonkez12/storefront-users/internal/httputil"
	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUserNotFound       = "User Not Found"
	msgUnknownEmail       = "A user with this email has not found."
	msgResetTokenSet      = "Reset Token Has Been Set"
	msgInvalidResetToken  = "Reset token is not valid. Please follow forget password again."
	msgPasswordReset      = "Reset password has been done successfully. Please signin again."
)

// Handler contains HTTP handlers for credential and password reset endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignInRequest represents the sign-in request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileRequest is the body of PUT /api/users/profile. Every field is optional.
type ProfileRequest struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Password          *string `json:"password"`
	SellerName        *string `json:"sellerName"`
	SellerLogo        *string `json:"sellerLogo"`
	SellerURL         *string `json:"sellerUrl"`
	SellerDescription *string `json:"sellerDescription"`
}

func (r ProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Length(0, 254), is.Email),
		validation.Field(&r.SellerURL, validation.Length(0, 200)),
	)
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	ResetToken string `json:"resetToken"`
	Password   string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthResponse is the public user plus a session token
type AuthResponse struct {
	user.PublicUser
	Token string `json:"token"`
}

// ResetTokenResponse is returned for a valid reset token. It never echoes the token.
type ResetTokenResponse struct {
	Message string          `json:"message"`
	User    user.PublicUser `json:"user"`
}

func newAuthResponse(s *Session) AuthResponse {
	return AuthResponse{PublicUser: s.User.Public(), Token: s.Token}
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a customer account and receive a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/users/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		logger.Warn("registration failed: validation error", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	session, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("registration failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user registered successfully", "user_id", session.User.ID)

	httputil.RespondJSON(w, newAuthResponse(session), http.StatusCreated)
}

// SignIn handles credential sign-in
// @Summary      Sign in
// @Description  Authenticate with email and password and receive a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid email or password"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/users/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("sign-in failed: invalid credentials")
			httputil.RespondErrorWithCode(w, msgInvalidCredentials, httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("sign-in failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to sign in", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user signed in successfully", "user_id", session.User.ID)

	httputil.RespondJSON(w, newAuthResponse(session), http.StatusOK)
}

// UpdateProfile handles self-service profile changes
// @Summary      Update own profile
// @Description  Change name, email, password and, for sellers, the storefront. Returns a fresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ProfileRequest true "Fields to change"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /api/users/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "No Token", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid profile request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	session, err := h.service.UpdateProfile(r.Context(), userID, ProfileChange{
		Profile: user.ProfileUpdate{
			Name:  req.Name,
			Email: req.Email,
			Seller: user.SellerUpdate{
				Name:        req.SellerName,
				Logo:        req.SellerLogo,
				URL:         req.SellerURL,
				Description: req.SellerDescription,
			},
		},
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusNotFound)
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("profile update failed: email already exists", "user_id", userID)
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		default:
			logger.Error("profile update failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("profile updated", "user_id", userID)

	httputil.RespondJSON(w, newAuthResponse(session), http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Issue a reset token for the account and email a reset link
// @Tags         password
// @Produce      json
// @Param        id path string true "Account email"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "Unknown email"
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /api/users/{id}/forget-password [put]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	email, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, msgUnknownEmail, httputil.CodeUserNotFound, http.StatusNotFound)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, msgUnknownEmail, httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("forgot password failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to request password reset", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondMessage(w, msgResetTokenSet, http.StatusOK)
}

// ValidateResetToken checks a reset token before the reset form is shown
// @Summary      Validate reset token
// @Tags         password
// @Produce      json
// @Param        token path string true "Reset token"
// @Success      200 {object} ResetTokenResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid reset token"
// @Router       /api/users/request-reset-password/{token} [get]
func (h *Handler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, err := httputil.PathParam(r, "token")
	if err != nil {
		httputil.RespondErrorWithCode(w, msgInvalidResetToken, httputil.CodeInvalidResetToken, http.StatusBadRequest)
		return
	}

	u, err := h.service.ValidateResetToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			httputil.RespondErrorWithCode(w, msgInvalidResetToken, httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		logger.Error("reset token validation failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ResetTokenResponse{Message: "Success", User: u.Public()}, http.StatusOK)
}

// ResetPassword handles password reset confirmation
// @Summary      Reset password
// @Description  Consume the reset token and set a new password
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid reset token"
// @Failure      404 {object} httputil.ErrorResponse "Unknown user"
// @Router       /api/users/{id}/reset-password [put]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	// A malformed id can never match, so it takes the unknown-user path
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		id = uuid.Nil
	}

	if err := h.service.ResetPassword(r.Context(), id, req.ResetToken, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrInvalidResetToken):
			httputil.RespondErrorWithCode(w, msgInvalidResetToken, httputil.CodeInvalidResetToken, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("reset password failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset completed", "user_id", id)

	httputil.RespondMessage(w, msgPasswordReset, http.StatusOK)
}
