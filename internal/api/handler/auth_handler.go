package handler

import (
	"encoding/json"
	"net/http"

	"examtracker/internal/api/middleware"
	"examtracker/internal/app/service"
	"examtracker/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/token", h.token)
	r.Post("/register", h.register)
}

func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/users/me", h.me)
}

// token implements the password grant: form-encoded credentials in, bearer
// token out.
func (h *AuthHandler) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid form payload: "+err.Error())
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	resp, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		if common.HTTPStatusFromError(err) == http.StatusUnauthorized {
			common.RespondWithAuthError(w, err.Error())
			return
		}
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, user.Username)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
