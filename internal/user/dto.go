package user

import (
	"github.com/vkotelnikov/eduplatform/internal/core/common/validation"
)

type RegisterUserDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

func (dto *RegisterUserDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("email", dto.Email).Required().Email()
	validator.Field("name", dto.Name).Required().MaxLength(200)
	validator.Field("password", dto.Password).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		IsActive: u.IsActive,
	}
}
