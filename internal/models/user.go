package models

import "time"

type User struct {
	IDUser         string    `json:"id_user"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	PasswordHash   string    `json:"-"`
	Status         string    `json:"status,omitempty"`
	NomorHandphone string    `json:"nomor_handphone,omitempty"`
	NIP            string    `json:"nip,omitempty"`
	FotoProfilURL  string    `json:"foto_profil_url,omitempty"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
}
