package services

import (
	"sort"
	"time"
	_ "time/tzdata"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
)

// UncategorizedBucket is the reserved category name transactions without
// a category are aggregated under.
const UncategorizedBucket = "__uncategorized__"

// CategoryAmount is one category's aggregated amount within a period.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// PeriodTotals are one period's scalar totals. Expense and Neutral are
// stored as absolute values.
type PeriodTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Neutral float64 `json:"neutral"`
}

// StatsResult is the aggregation output: parallel arrays indexed by
// period. Periods with no transactions are present with empty slices.
type StatsResult struct {
	Periods []string           `json:"periods"`
	Income  [][]CategoryAmount `json:"income"`
	Expense [][]CategoryAmount `json:"expense"`
	Neutral [][]CategoryAmount `json:"neutral"`
	Totals  []PeriodTotals     `json:"totals"`

	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// statsTx is the in-memory arena record the netting pass works on.
// links holds linked transaction ids in ascending order.
type statsTx struct {
	id      string
	date    time.Time
	amount  float64
	catName string
	neutral bool
	links   []string
}

// statsService computes netted per-period aggregations.
type statsService struct {
	db *gorm.DB
}

// NewStatsService creates a new StatsServicer.
func NewStatsService(db *gorm.DB) StatsServicer {
	return &statsService{db: db}
}

type statsJoinRow struct {
	ID           string     `gorm:"column:id"`
	Date         time.Time  `gorm:"column:date"`
	CategorizeOn *time.Time `gorm:"column:categorize_on"`
	Amount       float64    `gorm:"column:amount"`
	CatName      *string    `gorm:"column:cat_name"`
	CatIsNeutral *bool      `gorm:"column:cat_is_neutral"`
	LinkedID     *string    `gorm:"column:linked_id"`
}

// GetStats aggregates the user's transactions in [from, to) into
// per-month income/expense/neutral breakdowns, netting linked
// passthrough pairs first. Months are bucketed in the caller's zone.
func (s *statsService) GetStats(userID string, from, to time.Time, timezone string) (*StatsResult, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, apperrors.WithDetails(apperrors.ErrInvalidInput,
			map[string]string{"timezone": "unknown timezone"})
	}
	if !from.Before(to) {
		return nil, apperrors.WithDetails(apperrors.ErrInvalidInput,
			map[string]string{"from": "must be before to"})
	}

	var rows []statsJoinRow
	err = s.db.Raw(`
		SELECT
			t.id AS id,
			t.date AS date,
			t.categorize_on AS categorize_on,
			t.amount AS amount,
			c.name AS cat_name,
			c.is_neutral AS cat_is_neutral,
			linked.id AS linked_id
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		LEFT JOIN transaction_links link
			ON link.transaction_a_id = t.id OR link.transaction_b_id = t.id
		LEFT JOIN transactions linked
			ON linked.id = CASE WHEN link.transaction_a_id = t.id THEN link.transaction_b_id ELSE link.transaction_a_id END
		WHERE t.user_id = ? AND t.date >= ? AND t.date < ?
		ORDER BY t.date ASC, t.id ASC, linked.id ASC`,
		userID, from.UTC(), to.UTC()).Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	txs := make(map[string]*statsTx, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		tx, seen := txs[row.ID]
		if !seen {
			date := row.Date
			if row.CategorizeOn != nil {
				date = *row.CategorizeOn
			}
			tx = &statsTx{
				id:      row.ID,
				date:    date,
				amount:  row.Amount,
				neutral: row.CatIsNeutral != nil && *row.CatIsNeutral,
			}
			if row.CatName != nil {
				tx.catName = *row.CatName
			}
			txs[row.ID] = tx
			order = append(order, row.ID)
		}
		if row.LinkedID != nil {
			tx.links = append(tx.links, *row.LinkedID)
		}
	}

	return computeStats(txs, order, from, to, loc), nil
}

// computeStats runs the netting pass and buckets the adjusted amounts.
//
// Netting walks positive, non-neutral, linked transactions (drivers) in
// ascending (date, id) order; each driver pours its amount into linked
// negative receivers, link list in ascending id order, bounded by each
// receiver's remaining unconsumed capacity. Adjustments accumulate
// two-pass: nothing is applied until every driver has been walked, so a
// driver never observes a partially-adjusted receiver amount. The
// receiver side never drives; a linked negative transaction whose
// counterpart is outside the loaded range keeps its full magnitude.
func computeStats(txs map[string]*statsTx, order []string, from, to time.Time, loc *time.Location) *StatsResult {
	adjustments := make(map[string]float64)
	consumed := make(map[string]float64)

	for _, id := range order {
		tx := txs[id]
		if tx.amount <= 0 || len(tx.links) == 0 || tx.neutral {
			continue
		}

		remaining := tx.amount
		for _, linkID := range tx.links {
			linked, ok := txs[linkID]
			if !ok || linked.amount >= 0 {
				continue
			}

			capacity := -linked.amount - consumed[linkID]
			if capacity <= 0 {
				continue
			}

			use := remaining
			if capacity < use {
				use = capacity
			}
			adjustments[id] -= use
			adjustments[linkID] += use
			consumed[linkID] += use
			remaining -= use
			if remaining <= 0 {
				break
			}
		}
	}

	for id, adjustment := range adjustments {
		txs[id].amount += adjustment
	}

	// The inclusive period list spans every month touched by [from, to),
	// empty months included.
	periods := make([]string, 0)
	periodIndex := make(map[string]int)
	start := from.In(loc)
	for cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc); cur.Before(to.In(loc)); cur = cur.AddDate(0, 1, 0) {
		p := cur.Format("2006-01")
		periodIndex[p] = len(periods)
		periods = append(periods, p)
	}

	n := len(periods)
	income := make([]map[string]float64, n)
	expense := make([]map[string]float64, n)
	neutral := make([]map[string]float64, n)
	for i := range periods {
		income[i] = map[string]float64{}
		expense[i] = map[string]float64{}
		neutral[i] = map[string]float64{}
	}
	totals := make([]PeriodTotals, n)

	result := &StatsResult{Periods: periods}

	for _, id := range order {
		tx := txs[id]
		if tx.amount == 0 {
			continue
		}

		i, ok := periodIndex[tx.date.In(loc).Format("2006-01")]
		if !ok {
			// categorize_on can move a transaction outside the range
			continue
		}

		name := tx.catName
		if name == "" {
			name = UncategorizedBucket
		}

		switch {
		case tx.neutral:
			abs := tx.amount
			if abs < 0 {
				abs = -abs
			}
			neutral[i][name] += abs
			totals[i].Neutral += abs
		case tx.amount > 0:
			income[i][name] += tx.amount
			totals[i].Income += tx.amount
			result.TotalIncome += tx.amount
		default:
			expense[i][name] += -tx.amount
			totals[i].Expense += -tx.amount
			result.TotalExpense += -tx.amount
		}
	}

	result.Income = make([][]CategoryAmount, n)
	result.Expense = make([][]CategoryAmount, n)
	result.Neutral = make([][]CategoryAmount, n)
	for i := range periods {
		result.Income[i] = sortedAmounts(income[i])
		result.Expense[i] = sortedAmounts(expense[i])
		result.Neutral[i] = sortedAmounts(neutral[i])
	}
	result.Totals = totals

	return result
}

// sortedAmounts flattens a category bucket, largest amount first, ties
// broken by name so the order is stable.
func sortedAmounts(bucket map[string]float64) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(bucket))
	for name, amount := range bucket {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
