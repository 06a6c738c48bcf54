package request

import (
	"log/slog"

	errors "github.com/vkotelnikov/eduplatform/internal"
)

type RepositoryAPI interface {
	Create(req *Request) error
	GetByID(id int64) (*Request, error)
	GetAll(limit, offset int) ([]*Request, error)
	UpdateStatus(id int64, status Status) error
	MarkEnrolled(userID, courseID int64) error
	Delete(id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) Create(dto CreateRequestDTO, userID int64) (*Request, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("request validation failed", "error", err)
		return nil, err
	}

	req := &Request{
		Name:     dto.Name,
		Phone:    dto.Phone,
		Email:    dto.Email,
		CourseID: dto.CourseID,
		Status:   StatusNew,
	}
	if userID != 0 {
		req.UserID = &userID
	}

	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create request", "error", err)
		return nil, err
	}

	s.logger.Info("enrollment request created", "request_id", req.ID, "name", req.Name)
	return req, nil
}

func (s *Service) GetAll(limit, offset int) ([]*Request, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.GetAll(limit, offset)
}

func (s *Service) UpdateStatus(id int64, rawStatus string) (*Request, error) {
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), errors.ErrCodeValidationFailed)
	}

	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.ErrRequestNotFound
	}

	if err := s.repo.UpdateStatus(id, status); err != nil {
		s.logger.Error("failed to update request status", "error", err, "request_id", id)
		return nil, err
	}

	req.Status = status
	return req, nil
}

func (s *Service) Delete(id int64) error {
	req, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if req == nil {
		return errors.ErrRequestNotFound
	}
	return s.repo.Delete(id)
}
