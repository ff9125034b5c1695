package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category for a user. Names are unique per
// user, compared case-insensitively.
func (s *categoryService) CreateCategory(userID, name string, isNeutral bool) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	var count int64
	s.db.Model(&models.Category{}).
		Where("user_id = ? AND lower(name) = ?", userID, strings.ToLower(name)).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategoryName
	}

	category := &models.Category{
		UserID:    userID,
		Name:      name,
		IsNeutral: isNeutral,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetUserCategories lists a user's categories with their transaction
// counts, ordered by name.
func (s *categoryService) GetUserCategories(userID string) ([]CategoryWithCount, error) {
	var categories []CategoryWithCount
	err := s.db.Model(&models.Category{}).
		Select("categories.*, count(transactions.id) AS transaction_count").
		Joins("LEFT JOIN transactions ON transactions.category_id = categories.id").
		Where("categories.user_id = ?", userID).
		Group("categories.id").
		Order("categories.name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID retrieves one category, scoped to the user.
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory renames a category and/or toggles its neutral flag.
func (s *categoryService) UpdateCategory(userID, categoryID, name string, isNeutral *bool) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		var count int64
		s.db.Model(&models.Category{}).
			Where("user_id = ? AND lower(name) = ? AND id <> ?", userID, strings.ToLower(name), categoryID).
			Count(&count)
		if count > 0 {
			return nil, apperrors.ErrDuplicateCategoryName
		}
		category.Name = name
	}
	if isNeutral != nil {
		category.IsNeutral = *isNeutral
	}

	if err := s.db.Save(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// DeleteCategory removes a category and uncategorizes its transactions.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND category_id = ?", userID, categoryID).
			Update("category_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
