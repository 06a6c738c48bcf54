package course

import (
	"log/slog"

	errors "github.com/vkotelnikov/eduplatform/internal"
	courseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/course"
)

type RepositoryAPI interface {
	GetAll() ([]*courseDatamodel.Course, error)
	GetByID(id int64) (*courseDatamodel.Course, error)
	GetCategoryByID(id int64) (*courseDatamodel.Category, error)
	GetLevelByID(id int64) (*courseDatamodel.Level, error)
	IsCategoryLinked(courseID, categoryID int64) (bool, error)
	IsLevelLinked(categoryID, levelID int64) (bool, error)
	CreateCourse(c *courseDatamodel.Course) error
	CreateCategory(c *courseDatamodel.Category) error
	CreateLevel(l *courseDatamodel.Level) error
	LinkCategory(courseID, categoryID int64) error
	LinkLevel(categoryID, levelID int64) error
	UpdateCourse(c *courseDatamodel.Course) error
	DeleteCourse(id int64) error
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

func (s *Service) GetAllCourses() ([]*Course, error) {
	dms, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to get courses from repository", "error", err)
		return nil, err
	}

	courses := make([]*Course, 0, len(dms))
	for _, dm := range dms {
		domainCourse := FromDataModel(dm)
		if domainCourse.IsActive {
			courses = append(courses, domainCourse)
		}
	}
	return courses, nil
}

func (s *Service) GetCourseByID(id int64) (*Course, error) {
	dm, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get course", "error", err, "course_id", id)
		return nil, err
	}
	if dm == nil {
		return nil, errors.ErrCourseNotFound
	}
	return FromDataModel(dm), nil
}

func (s *Service) GetCategoryByID(id int64) (*Category, error) {
	dm, err := s.repo.GetCategoryByID(id)
	if err != nil {
		s.logger.Error("failed to get category", "error", err, "category_id", id)
		return nil, err
	}
	if dm == nil {
		return nil, errors.ErrCategoryNotFound
	}
	cat := CategoryFromDataModel(dm)
	return &cat, nil
}

func (s *Service) GetLevelByID(id int64) (*Level, error) {
	dm, err := s.repo.GetLevelByID(id)
	if err != nil {
		s.logger.Error("failed to get level", "error", err, "level_id", id)
		return nil, err
	}
	if dm == nil {
		return nil, errors.ErrLevelNotFound
	}
	return &Level{ID: dm.ID, Name: dm.Name}, nil
}

// IsCategoryLinked reports whether the category is one of the course's
// enrollment options.
func (s *Service) IsCategoryLinked(courseID, categoryID int64) (bool, error) {
	return s.repo.IsCategoryLinked(courseID, categoryID)
}

func (s *Service) IsLevelLinked(categoryID, levelID int64) (bool, error) {
	return s.repo.IsLevelLinked(categoryID, levelID)
}

func (s *Service) CreateCourse(dto CreateCourseDTO) (*Course, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	dm := &courseDatamodel.Course{
		Name:        dto.Name,
		Description: dto.Description,
		ImageURL:    dto.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.CreateCourse(dm); err != nil {
		s.logger.Error("failed to create course", "error", err, "name", dto.Name)
		return nil, err
	}

	for _, categoryID := range dto.CategoryIDs {
		if err := s.repo.LinkCategory(dm.ID, categoryID); err != nil {
			s.logger.Error("failed to link category", "error", err, "course_id", dm.ID, "category_id", categoryID)
			return nil, err
		}
	}

	s.logger.Info("course created", "course_id", dm.ID, "name", dm.Name)
	return s.GetCourseByID(dm.ID)
}

// CreateCategory creates a category and links it to the given course.
func (s *Service) CreateCategory(courseID int64, dto CreateCategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetCourseByID(courseID); err != nil {
		return nil, err
	}

	dm := &courseDatamodel.Category{
		Name:           dto.Name,
		Price:          dto.Price,
		DurationMonths: dto.DurationMonths,
	}
	if err := s.repo.CreateCategory(dm); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, err
	}

	if err := s.repo.LinkCategory(courseID, dm.ID); err != nil {
		s.logger.Error("failed to link category", "error", err, "course_id", courseID, "category_id", dm.ID)
		return nil, err
	}

	for _, levelID := range dto.LevelIDs {
		if err := s.repo.LinkLevel(dm.ID, levelID); err != nil {
			s.logger.Error("failed to link level", "error", err, "category_id", dm.ID, "level_id", levelID)
			return nil, err
		}
	}

	s.logger.Info("category created", "category_id", dm.ID, "course_id", courseID, "name", dm.Name, "price", dm.Price)
	return s.GetCategoryByID(dm.ID)
}

// CreateLevel creates a level and links it to the given category.
func (s *Service) CreateLevel(categoryID int64, dto CreateLevelDTO) (*Level, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetCategoryByID(categoryID); err != nil {
		return nil, err
	}

	dm := &courseDatamodel.Level{Name: dto.Name}
	if err := s.repo.CreateLevel(dm); err != nil {
		s.logger.Error("failed to create level", "error", err, "name", dto.Name)
		return nil, err
	}

	if err := s.repo.LinkLevel(categoryID, dm.ID); err != nil {
		s.logger.Error("failed to link level", "error", err, "category_id", categoryID, "level_id", dm.ID)
		return nil, err
	}

	return &Level{ID: dm.ID, Name: dm.Name}, nil
}

func (s *Service) DeleteCourse(id int64) error {
	dm, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if dm == nil {
		return errors.ErrCourseNotFound
	}
	return s.repo.DeleteCourse(id)
}
