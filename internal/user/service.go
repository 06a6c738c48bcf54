package user

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	errors "github.com/vkotelnikov/eduplatform/internal"
	userDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
	GetByEmail(email string) (*userDatamodel.User, error)
	GetAll(limit, offset int) ([]*userDatamodel.User, error)
	Create(u *userDatamodel.User) error
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

// GetByID returns the user or a typed not-found error; it never leaks the
// password hash past the domain boundary.
func (s *Service) GetByID(id int64) (*User, error) {
	dm, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, err
	}
	if dm == nil {
		return nil, errors.ErrUserNotFound
	}
	return FromDataModel(dm), nil
}

func (s *Service) GetAll(limit, offset int) ([]UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	dms, err := s.repo.GetAll(limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}

	responses := make([]UserResponse, 0, len(dms))
	for _, dm := range dms {
		responses = append(responses, FromDataModel(dm).ToResponse())
	}
	return responses, nil
}

func (s *Service) Register(dto RegisterUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("user registration validation failed", "error", err)
		return nil, err
	}

	existing, err := s.repo.GetByEmail(dto.Email)
	if err != nil {
		s.logger.Error("failed to check existing user", "error", err, "email", dto.Email)
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewConflictError("user with this email already exists", errors.ErrCodeValidationFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	dm := &userDatamodel.User{
		Email:        dto.Email,
		Name:         dto.Name,
		Phone:        dto.Phone,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.Create(dm); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", dm.ID, "email", dm.Email)
	return FromDataModel(dm), nil
}

func (s *Service) Delete(id int64) error {
	dm, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if dm == nil {
		return errors.ErrUserNotFound
	}
	return s.repo.Delete(id)
}
