package dto

type LoginDTO struct {
	Email    string `json:"email" validate:"required,custom_email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterDTO struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,custom_email"`
	Phone    string `json:"phone" validate:"omitempty,in_phone"`
	Password string `json:"password" validate:"required,min=8"`
}

type AuthResponseDTO struct {
	AccessToken string        `json:"accessToken"`
	ExpiresIn   int64         `json:"expiresIn"`
	User        UserPublicDTO `json:"user"`
}

type UserPublicDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}
