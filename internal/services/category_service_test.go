package services

import (
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		category, err := svc.CreateCategory(user.ID, "Groceries", false)
		testutil.AssertNoError(t, err)
		if category.ID == "" {
			t.Error("expected generated category id")
		}
		if category.IsNeutral {
			t.Error("expected non-neutral category")
		}
	})

	t.Run("duplicate_name_case_insensitive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "Rent", false)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(user.ID, "rent", true)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY_NAME")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "", false)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	groceries := testutil.CreateTestCategoryNamed(t, db, user.ID, "Groceries", false)
	testutil.CreateTestCategoryNamed(t, db, user.ID, "Transfers", true)

	for i := 0; i < 3; i++ {
		tx := testutil.CreateTestTransaction(t, db, user.ID, time.Now(), -5)
		db.Model(tx).Update("category_id", groceries.ID)
	}

	categories, err := svc.GetUserCategories(user.ID)
	testutil.AssertNoError(t, err)

	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	// Ordered by name: Groceries before Transfers.
	if categories[0].Name != "Groceries" || categories[0].TransactionCount != 3 {
		t.Errorf("got %q with count %d", categories[0].Name, categories[0].TransactionCount)
	}
	if categories[1].Name != "Transfers" || categories[1].TransactionCount != 0 {
		t.Errorf("got %q with count %d", categories[1].Name, categories[1].TransactionCount)
	}
}

func TestUpdateCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	category := testutil.CreateTestCategoryNamed(t, db, user.ID, "Misc", false)

	neutral := true
	updated, err := svc.UpdateCategory(user.ID, category.ID, "Internal", &neutral)
	testutil.AssertNoError(t, err)
	if updated.Name != "Internal" || !updated.IsNeutral {
		t.Errorf("got name %q neutral %v", updated.Name, updated.IsNeutral)
	}
}

func TestDeleteCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	category := testutil.CreateTestCategory(t, db, user.ID)
	tx := testutil.CreateTestTransaction(t, db, user.ID, time.Now(), -10)
	db.Model(tx).Update("category_id", category.ID)

	err := svc.DeleteCategory(user.ID, category.ID)
	testutil.AssertNoError(t, err)

	var got models.Transaction
	testutil.AssertNoError(t, db.First(&got, "id = ?", tx.ID).Error)
	if got.CategoryID != nil {
		t.Error("expected transaction to be uncategorized after category delete")
	}
}
