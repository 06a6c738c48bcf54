package postgres

import (
	coursepkg "github.com/vkotelnikov/eduplatform/internal/course"
	courseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/course"
	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) coursepkg.RepositoryAPI {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) GetAll() ([]*courseDatamodel.Course, error) {
	var courses []*courseDatamodel.Course
	err := r.db.Preload("Categories").Preload("Categories.Levels").Order("name ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) GetByID(id int64) (*courseDatamodel.Course, error) {
	var c courseDatamodel.Course
	err := r.db.Preload("Categories").Preload("Categories.Levels").Where("id = ?", id).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) GetCategoryByID(id int64) (*courseDatamodel.Category, error) {
	var c courseDatamodel.Category
	err := r.db.Preload("Levels").Where("id = ?", id).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) GetLevelByID(id int64) (*courseDatamodel.Level, error) {
	var l courseDatamodel.Level
	err := r.db.Where("id = ?", id).First(&l).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *CourseRepository) IsCategoryLinked(courseID, categoryID int64) (bool, error) {
	var count int64
	err := r.db.Table("course_categories").
		Where("course_id = ? AND category_id = ?", courseID, categoryID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) IsLevelLinked(categoryID, levelID int64) (bool, error) {
	var count int64
	err := r.db.Table("category_levels").
		Where("category_id = ? AND level_id = ?", categoryID, levelID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) CreateCourse(c *courseDatamodel.Course) error {
	return r.db.Create(c).Error
}

func (r *CourseRepository) CreateCategory(c *courseDatamodel.Category) error {
	return r.db.Create(c).Error
}

func (r *CourseRepository) CreateLevel(l *courseDatamodel.Level) error {
	return r.db.Create(l).Error
}

func (r *CourseRepository) LinkCategory(courseID, categoryID int64) error {
	return r.db.Exec(
		"INSERT INTO course_categories (course_id, category_id) VALUES (?, ?)",
		courseID, categoryID).Error
}

func (r *CourseRepository) LinkLevel(categoryID, levelID int64) error {
	return r.db.Exec(
		"INSERT INTO category_levels (category_id, level_id) VALUES (?, ?)",
		categoryID, levelID).Error
}

func (r *CourseRepository) UpdateCourse(c *courseDatamodel.Course) error {
	return r.db.Save(c).Error
}

func (r *CourseRepository) DeleteCourse(id int64) error {
	return r.db.Model(&courseDatamodel.Course{}).Where("id = ?", id).Update("is_active", false).Error
}
