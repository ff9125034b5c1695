package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an account with a unique name.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID: userID,
		Name:   fmt.Sprintf("Test Account %d", nextID()),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a non-neutral category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, userID, fmt.Sprintf("Test Category %d", nextID()), false)
}

// CreateTestCategoryNamed creates a category with the given name and
// neutral flag.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, userID, name string, isNeutral bool) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:    userID,
		Name:      name,
		IsNeutral: isNeutral,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction on the given date with the
// given amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, date time.Time, amount float64) *models.Transaction {
	t.Helper()

	name := fmt.Sprintf("Counterparty %d", nextID())
	tx := &models.Transaction{
		UserID:           userID,
		Date:             date,
		Amount:           amount,
		Currency:         "EUR",
		CounterParty:     name,
		OrigCounterParty: name,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// LinkTestTransactions inserts a link row directly, bypassing the
// service-layer dedup.
func LinkTestTransactions(t *testing.T, db *gorm.DB, userID, aID, bID string) *models.TransactionLink {
	t.Helper()

	link := &models.TransactionLink{
		UserID:         userID,
		TransactionAID: aID,
		TransactionBID: bID,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("failed to create test link: %v", err)
	}
	return link
}
