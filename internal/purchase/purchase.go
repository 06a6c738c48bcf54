package purchase

import (
	"time"

	"github.com/shopspring/decimal"

	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
)

// PurchaseView is the denormalized confirmation view returned after a
// purchase is reconciled: local identifiers plus human-readable names and
// the buyer's contact fields.
type PurchaseView struct {
	PurchaseID   int64           `json:"purchase_id"`
	UserID       int64           `json:"user_id"`
	UserName     string          `json:"user_name"`
	UserEmail    string          `json:"user_email"`
	UserPhone    string          `json:"user_phone,omitempty"`
	CourseID     int64           `json:"course_id"`
	CourseName   string          `json:"course_name"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Degree       string          `json:"degree"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

func ToView(p *purchaseDatamodel.Purchase) *PurchaseView {
	view := &PurchaseView{
		PurchaseID:   p.ID,
		UserID:       p.UserID,
		CourseID:     p.CourseID,
		CategoryID:   p.CategoryID,
		Degree:       p.Degree,
		Price:        p.Price,
		Status:       string(p.Status),
		PurchaseDate: p.PurchaseDate,
	}
	if p.User != nil {
		view.UserName = p.User.Name
		view.UserEmail = p.User.Email
		view.UserPhone = p.User.Phone
	}
	if p.Course != nil {
		view.CourseName = p.Course.Name
	}
	if p.Category != nil {
		view.CategoryName = p.Category.Name
	}
	return view
}
