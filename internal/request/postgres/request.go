package postgres

import (
	requestpkg "github.com/vkotelnikov/eduplatform/internal/request"
	"gorm.io/gorm"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) requestpkg.RepositoryAPI {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *requestpkg.Request) error {
	return r.db.Create(req).Error
}

func (r *RequestRepository) GetByID(id int64) (*requestpkg.Request, error) {
	var req requestpkg.Request
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) GetAll(limit, offset int) ([]*requestpkg.Request, error) {
	var requests []*requestpkg.Request
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error
	return requests, err
}

func (r *RequestRepository) UpdateStatus(id int64, status requestpkg.Status) error {
	return r.db.Model(&requestpkg.Request{}).Where("id = ?", id).Update("status", status).Error
}

// MarkEnrolled flips the user's open requests for a course to enrolled.
// No-op when the user never left a request for it.
func (r *RequestRepository) MarkEnrolled(userID, courseID int64) error {
	return r.db.Model(&requestpkg.Request{}).
		Where("user_id = ? AND course_id = ? AND status <> ?", userID, courseID, requestpkg.StatusEnrolled).
		Update("status", requestpkg.StatusEnrolled).Error
}

func (r *RequestRepository) Delete(id int64) error {
	return r.db.Delete(&requestpkg.Request{}, id).Error
}
