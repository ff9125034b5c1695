package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account for a user. Names are unique per
// user, compared case-insensitively.
func (s *accountService) CreateAccount(userID, name string, externalID *string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	var count int64
	s.db.Model(&models.Account{}).
		Where("user_id = ? AND lower(name) = ?", userID, strings.ToLower(name)).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateAccountName
	}

	account := &models.Account{
		UserID:     userID,
		Name:       name,
		ExternalID: externalID,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetUserAccounts lists a user's accounts ordered by name.
func (s *accountService) GetUserAccounts(userID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return accounts, nil
}

// GetAccountByID retrieves one account, scoped to the user.
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount renames an account.
func (s *accountService) UpdateAccount(userID, accountID, name string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	var count int64
	s.db.Model(&models.Account{}).
		Where("user_id = ? AND lower(name) = ? AND id <> ?", userID, strings.ToLower(name), accountID).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateAccountName
	}

	account.Name = name
	if err := s.db.Save(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// DeleteAccount removes an account and detaches its transactions.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND account_id = ?", userID, accountID).
			Update("account_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
