package dto

import "ai-chat-gateway/internal/entity"

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	SessionID   string  `json:"session_id"`
	User        UserDTO `json:"user"`

	// Redirect is the client-relative path requested at login start. It
	// steers the callback redirect and never leaves the server as JSON.
	Redirect string `json:"-"`
}

type UserDTO struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Picture  string `json:"picture,omitempty"`
	Tier     string `json:"tier"`
}

func NewUserDTO(id entity.Identity) UserDTO {
	return UserDTO{
		Email:    id.Email,
		FullName: id.FullName,
		Picture:  id.Picture,
		Tier:     string(id.Tier),
	}
}
