package course

import (
	"time"

	"github.com/shopspring/decimal"

	courseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/course"
)

type Course struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsActive    bool       `json:"is_active"`
	Categories  []Category `json:"categories,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Category struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	DurationMonths int             `json:"duration_months"`
	Levels         []Level         `json:"levels,omitempty"`
}

type Level struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func FromDataModel(c *courseDatamodel.Course) *Course {
	out := &Course{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for i := range c.Categories {
		out.Categories = append(out.Categories, CategoryFromDataModel(&c.Categories[i]))
	}
	return out
}

func CategoryFromDataModel(c *courseDatamodel.Category) Category {
	out := Category{
		ID:             c.ID,
		Name:           c.Name,
		Price:          c.Price,
		DurationMonths: c.DurationMonths,
	}
	for _, l := range c.Levels {
		out.Levels = append(out.Levels, Level{ID: l.ID, Name: l.Name})
	}
	return out
}
