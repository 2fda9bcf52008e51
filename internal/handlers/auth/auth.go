// handlers/auth/auth.go
package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/repositories"
	services "github.com/saraspatika/absensi_backend/internal/services/auth"
)

type AuthHandler struct {
	users      *repositories.UserRepository
	jwtService *services.JWTService
}

func NewAuthHandler(db *sql.DB, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		users:      repositories.NewUserRepository(db),
		jwtService: jwtService,
	}
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var loginData models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginData); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	user, err := h.users.ByEmail(r.Context(), loginData.Email)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil || !services.CheckPasswordHash(loginData.Password, user.PasswordHash) {
		response.RespondWithError(w, http.StatusUnauthorized, "Email atau password salah")
		return
	}

	token, refreshToken, err := h.jwtService.GenerateTokens(r.Context(), user.IDUser, user.Role)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	response.RespondWithJSON(w, http.StatusOK, models.AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		Role:         user.Role,
		UserID:       user.IDUser,
		Name:         user.Name,
	})
}

func (h *AuthHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	type RequestBody struct {
		RefreshToken string `json:"refresh_token"`
	}

	var body RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if body.RefreshToken == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(r.Context(), body.RefreshToken)
	if err != nil {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	user, err := h.users.ByID(r.Context(), userID)
	if err != nil || user == nil {
		response.RespondWithError(w, http.StatusInternalServerError, "User not found")
		return
	}

	// Rotate: the old token is revoked before the new pair is issued.
	if err := h.jwtService.RevokeRefreshToken(r.Context(), body.RefreshToken); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Could not rotate token")
		return
	}

	token, refreshToken, err := h.jwtService.GenerateTokens(r.Context(), user.IDUser, user.Role)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Could not generate token")
		return
	}

	response.RespondWithJSON(w, http.StatusOK, map[string]string{
		"token":         token,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	type RequestBody struct {
		RefreshToken string `json:"refresh_token"`
	}

	var body RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		_ = h.jwtService.RevokeRefreshToken(r.Context(), body.RefreshToken)
	}

	response.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}
