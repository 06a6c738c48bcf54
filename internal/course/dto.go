package course

import (
	"github.com/shopspring/decimal"

	errors "github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/core/common/validation"
)

type CreateCourseDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url,omitempty"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

func (dto *CreateCourseDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", dto.Name).Required().MaxLength(200)
	validator.Field("description", dto.Description).MaxLength(2000)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreateCategoryDTO struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	DurationMonths int             `json:"duration_months"`
	LevelIDs       []int64         `json:"level_ids,omitempty"`
}

func (dto *CreateCategoryDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", dto.Name).Required().MaxLength(200)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	if dto.Price.IsNegative() {
		return errors.NewValidationFieldError("price", "price must not be negative", errors.ErrCodeInvalidAmount)
	}
	return nil
}

type CreateLevelDTO struct {
	Name string `json:"name"`
}

func (dto *CreateLevelDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("name", dto.Name).Required().MaxLength(200)
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CoursesResponse struct {
	Courses []*Course `json:"courses"`
}
