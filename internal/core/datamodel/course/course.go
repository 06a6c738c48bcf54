package course

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID          int64      `gorm:"primaryKey"`
	Name        string     `gorm:"column:name;uniqueIndex;not null"`
	Description string     `gorm:"column:description"`
	ImageURL    string     `gorm:"column:image_url"`
	IsActive    bool       `gorm:"column:is_active;default:true"`
	Categories  []Category `gorm:"many2many:course_categories;"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Course) TableName() string {
	return "courses"
}

// Category is a priced enrollment option with a duration window. A category
// can be linked to several courses and carries its own set of levels.
type Category struct {
	ID             int64           `gorm:"primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	DurationMonths int             `gorm:"column:duration_months;not null"`
	Levels         []Level         `gorm:"many2many:category_levels;"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Category) TableName() string {
	return "categories"
}

type Level struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Level) TableName() string {
	return "levels"
}
