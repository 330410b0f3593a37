package handler

import (
	"encoding/json"
	"net/http"

	"buddy-api/common"
	"buddy-api/model"
	"buddy-api/service"
)

type AuthHandler struct {
	Service service.IAuthService
}

func NewAuthHandler(s service.IAuthService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a FREE-tier account. Accepts JSON or form data.
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        credentials  body      model.CredentialsRequest  true  "Email and password"
// @Success      201          {object}  model.RegisterResponse
// @Failure      409          {object}  common.AppError
// @Failure      422          {object}  common.AppError
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CredentialsRequest
	if appErr := common.Decode(r, &req); appErr != nil {
		return appErr
	}

	if _, err := h.Service.Register(r.Context(), req.Email, req.Password); err != nil {
		return common.FromError(err)
	}

	writeJSON(w, http.StatusCreated, model.RegisterResponse{Detail: model.DetailCreated})
	return nil
}

// Login godoc
// @Summary      Log in with email and password
// @Description  Returns an access token and a refresh token. Issuing a refresh token may evict the user's oldest one.
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        credentials  body      model.CredentialsRequest  true  "Email and password"
// @Success      200          {object}  model.LoginResponse
// @Failure      401          {object}  common.AppError
// @Failure      422          {object}  common.AppError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CredentialsRequest
	if appErr := common.Decode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return common.FromError(err)
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{LoginResult: *result, Detail: model.DetailOK})
	return nil
}

// Session godoc
// @Summary      Describe the current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.SessionResponse
// @Failure      401  {object}  common.AppError
// @Security     BearerAuth
// @Router       /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		var err error
		if user, err = h.Service.Session(r.Context(), r.Header.Get("Authorization")); err != nil {
			return common.FromError(err)
		}
	}

	writeJSON(w, http.StatusOK, model.SessionResponse{
		User:   model.UserResponse{Email: user.Email, Tier: user.Tier},
		Detail: model.DetailOK,
	})
	return nil
}

// Refresh godoc
// @Summary      Mint a new access token
// @Description  The bearer token may be expired but must carry a valid signature. The refresh token stays valid.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  model.RefreshResponse
// @Failure      401      {object}  common.AppError
// @Failure      422      {object}  common.AppError
// @Security     BearerAuth
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if appErr := common.Decode(r, &req); appErr != nil {
		return appErr
	}

	access, err := h.Service.Refresh(r.Context(), r.Header.Get("Authorization"), req.RefreshToken)
	if err != nil {
		return common.FromError(err)
	}

	writeJSON(w, http.StatusOK, model.RefreshResponse{AccessToken: *access, Detail: model.DetailOK})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
