package services

import (
	"math"
	"testing"
	"time"

	"moneta/internal/testutil"
)

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

func ts(s string) time.Time {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func findAmount(list []CategoryAmount, name string) (float64, bool) {
	for _, ca := range list {
		if ca.Name == name {
			return ca.Amount, true
		}
	}
	return 0, false
}

// Pins the canonical netting order: drivers ascending (date, id), link
// lists ascending by linked id, receiver capacity consumed across
// drivers. The earlier credit drains first, the later credit keeps the
// overflow, the fully consumed debit nets to exactly zero and vanishes.
func TestGetStatsPassthroughNetting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	passthrough := testutil.CreateTestCategoryNamed(t, db, user.ID, "passthrough", false)

	credit1 := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-03T12:00:00Z"), 15.0)
	debit := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-15T12:00:00Z"), -32.3)
	credit2 := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-28T12:00:00Z"), 20.0)
	for _, id := range []string{credit1.ID, debit.ID, credit2.ID} {
		db.Exec("UPDATE transactions SET category_id = ? WHERE id = ?", passthrough.ID, id)
	}
	testutil.LinkTestTransactions(t, db, user.ID, credit1.ID, debit.ID)
	testutil.LinkTestTransactions(t, db, user.ID, debit.ID, credit2.ID)

	res, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-02-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)

	if len(res.Periods) != 1 || res.Periods[0] != "2025-01" {
		t.Fatalf("periods = %v", res.Periods)
	}

	// 15 + 20 credits absorb the -32.3 debit entirely: credit1 nets to
	// zero and disappears, credit2 keeps the 2.7 overflow.
	income, ok := findAmount(res.Income[0], "passthrough")
	if !ok {
		t.Fatal("expected passthrough income bucket")
	}
	approx(t, income, 2.7, "passthrough income")
	if len(res.Income[0]) != 1 {
		t.Errorf("income buckets = %v", res.Income[0])
	}

	// The debit was fully consumed: no expense survives.
	if len(res.Expense[0]) != 0 {
		t.Errorf("expense buckets = %v", res.Expense[0])
	}
	approx(t, res.TotalIncome, 2.7, "total income")
	approx(t, res.TotalExpense, 0, "total expense")
	approx(t, res.Totals[0].Income, 2.7, "period income total")
	approx(t, res.Totals[0].Expense, 0, "period expense total")
}

// A linked pair straddling a month boundary keeps full magnitude on
// both sides when each month is queried on its own: the counterpart is
// outside the loaded range, so nothing nets.
func TestGetStatsBoundaryPair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	electronics := testutil.CreateTestCategoryNamed(t, db, user.ID, "electronics", false)
	debit := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-01T12:00:00Z"), -150.0)
	credit := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-02-01T12:00:00Z"), 150.0)
	for _, id := range []string{debit.ID, credit.ID} {
		db.Exec("UPDATE transactions SET category_id = ? WHERE id = ?", electronics.ID, id)
	}
	testutil.LinkTestTransactions(t, db, user.ID, debit.ID, credit.ID)

	jan, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-02-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)
	expense, ok := findAmount(jan.Expense[0], "electronics")
	if !ok {
		t.Fatal("expected electronics expense in January")
	}
	approx(t, expense, 150, "january electronics expense")
	approx(t, jan.TotalIncome, 0, "january total income")

	feb, err := svc.GetStats(user.ID, ts("2025-02-01T00:00:00Z"), ts("2025-03-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)
	income, ok := findAmount(feb.Income[0], "electronics")
	if !ok {
		t.Fatal("expected electronics income in February")
	}
	approx(t, income, 150, "february electronics income")
	approx(t, feb.TotalExpense, 0, "february total expense")
}

func TestGetStatsNeutralExcludedFromTotals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	internal := testutil.CreateTestCategoryNamed(t, db, user.ID, "internal", true)
	tx1 := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-05T12:00:00Z"), -400.0)
	tx2 := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-06T12:00:00Z"), 400.0)
	for _, id := range []string{tx1.ID, tx2.ID} {
		db.Exec("UPDATE transactions SET category_id = ? WHERE id = ?", internal.ID, id)
	}

	res, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-02-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)

	approx(t, res.TotalIncome, 0, "total income")
	approx(t, res.TotalExpense, 0, "total expense")
	if len(res.Income[0]) != 0 || len(res.Expense[0]) != 0 {
		t.Errorf("neutral amounts leaked: income %v expense %v", res.Income[0], res.Expense[0])
	}
	// Both signs land in the neutral bucket as absolute values.
	neutral, ok := findAmount(res.Neutral[0], "internal")
	if !ok {
		t.Fatal("expected internal neutral bucket")
	}
	approx(t, neutral, 800, "neutral bucket")
	approx(t, res.Totals[0].Neutral, 800, "period neutral total")
}

func TestGetStatsBuckets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	groceries := testutil.CreateTestCategoryNamed(t, db, user.ID, "groceries", false)
	rent := testutil.CreateTestCategoryNamed(t, db, user.ID, "rent", false)

	a := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-04T12:00:00Z"), -120.0)
	db.Exec("UPDATE transactions SET category_id = ? WHERE id = ?", groceries.ID, a.ID)
	b := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-05T12:00:00Z"), -800.0)
	db.Exec("UPDATE transactions SET category_id = ? WHERE id = ?", rent.ID, b.ID)
	testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-06T12:00:00Z"), -9.9)

	res, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-04-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)

	// Empty months still appear.
	wantPeriods := []string{"2025-01", "2025-02", "2025-03"}
	if len(res.Periods) != 3 {
		t.Fatalf("periods = %v", res.Periods)
	}
	for i, p := range wantPeriods {
		if res.Periods[i] != p {
			t.Errorf("period %d = %q, want %q", i, res.Periods[i], p)
		}
	}
	if len(res.Expense[1]) != 0 || len(res.Expense[2]) != 0 {
		t.Error("expected empty buckets for empty months")
	}

	// January expenses sorted by amount descending.
	jan := res.Expense[0]
	if len(jan) != 3 {
		t.Fatalf("january expense buckets = %v", jan)
	}
	if jan[0].Name != "rent" || jan[1].Name != "groceries" || jan[2].Name != UncategorizedBucket {
		t.Errorf("bucket order = [%s %s %s]", jan[0].Name, jan[1].Name, jan[2].Name)
	}
	approx(t, jan[2].Amount, 9.9, "uncategorized amount")
	approx(t, res.TotalExpense, 929.9, "total expense")
}

func TestGetStatsTimezoneBucketing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	loc, err := time.LoadLocation("Europe/Helsinki")
	testutil.AssertNoError(t, err)

	// 23:30 UTC on Jan 31 is already February in Helsinki.
	testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-31T23:30:00Z"), -50.0)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, loc)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)

	res, err := svc.GetStats(user.ID, from, to, "Europe/Helsinki")
	testutil.AssertNoError(t, err)

	if len(res.Periods) != 2 {
		t.Fatalf("periods = %v", res.Periods)
	}
	if len(res.Expense[0]) != 0 {
		t.Errorf("january should be empty, got %v", res.Expense[0])
	}
	amount, ok := findAmount(res.Expense[1], UncategorizedBucket)
	if !ok {
		t.Fatal("expected expense bucketed into February")
	}
	approx(t, amount, 50, "february expense")
}

func TestGetStatsCategorizeOnOverride(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	tx := testutil.CreateTestTransaction(t, db, user.ID, ts("2025-01-20T12:00:00Z"), -75.0)
	db.Exec("UPDATE transactions SET categorize_on = ? WHERE id = ?", ts("2025-02-05T12:00:00Z"), tx.ID)

	res, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-03-01T00:00:00Z"), "UTC")
	testutil.AssertNoError(t, err)

	if len(res.Expense[0]) != 0 {
		t.Errorf("expected january empty, got %v", res.Expense[0])
	}
	amount, ok := findAmount(res.Expense[1], UncategorizedBucket)
	if !ok {
		t.Fatal("expected expense moved to february")
	}
	approx(t, amount, 75, "february expense")
}

func TestGetStatsValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatsService(db)
	user := testutil.CreateTestUser(t, db)

	_, err := svc.GetStats(user.ID, ts("2025-01-01T00:00:00Z"), ts("2025-02-01T00:00:00Z"), "Not/AZone")
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.GetStats(user.ID, ts("2025-02-01T00:00:00Z"), ts("2025-01-01T00:00:00Z"), "UTC")
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
