package request

import (
	"fmt"
	"time"

	"github.com/vkotelnikov/eduplatform/internal/core/common/validation"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusEnrolled  Status = "enrolled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusContacted, StatusEnrolled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown request status: %q", s)
}

// Request is an enrollment request left by a visitor or an authenticated
// user interested in a course.
type Request struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"column:name;not null"`
	Phone     string    `json:"phone" gorm:"column:phone"`
	Email     string    `json:"email" gorm:"column:email"`
	CourseID  *int64    `json:"course_id,omitempty" gorm:"column:course_id"`
	UserID    *int64    `json:"user_id,omitempty" gorm:"column:user_id"`
	Status    Status    `json:"status" gorm:"column:status;default:new"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "requests"
}

type CreateRequestDTO struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	CourseID *int64 `json:"course_id,omitempty"`
}

func (dto *CreateRequestDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", dto.Name).Required().MaxLength(200)
	validator.Field("phone", dto.Phone).Required().MaxLength(32)
	validator.Field("email", dto.Email).Email()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
