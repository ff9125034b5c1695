package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/statement"
	"moneta/internal/uuid"
)

// mergeBatchSize is how many staged rows one merge transaction moves.
const mergeBatchSize = 50000

// importService handles the bulk import pipeline: statements are parsed
// into a staging table, then merged into the ledger batch by batch.
//
// Every id a staged row will ever need (its transaction id, and a
// candidate id for a category that may have to be created) is generated
// before the first insert attempt and carried in the staging row itself.
// Re-running the merge after a crash therefore attempts the exact same
// inserts, and conflict-ignoring inserts make the retry a no-op for
// anything that already landed.
type importService struct {
	db *gorm.DB
	// batchSize is overridable so tests can force multi-batch merges.
	batchSize int
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB) ImportServicer {
	return &importService{db: db, batchSize: mergeBatchSize}
}

// StartImport parses a statement and stages its rows for merging. It
// returns once all rows are durably staged; the merge itself is run
// separately so a slow merge cannot fail the upload.
func (s *importService) StartImport(userID string, r io.Reader, parser statement.RecordParser, currency string, accountID *string) (string, int, error) {
	if currency == "" {
		currency = "EUR"
	}

	reader := csv.NewReader(r)
	reader.Comma = parser.Delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	importID := uuid.New()

	// Candidate category ids are assigned per distinct name, not per
	// row, so every row naming the same category carries the same id.
	categoryIDs := make(map[string]string)

	var rows []models.ImportRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return "", 0, apperrors.WithMessage(apperrors.ErrUnparsableStatement,
				fmt.Sprintf("line %d: %v", line, err))
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		parsed, err := parser.ParseRecord(record)
		if err != nil {
			return "", 0, apperrors.WithMessage(apperrors.ErrUnparsableStatement,
				fmt.Sprintf("line %d: %v", line, err))
		}

		row := models.ImportRow{
			ID:               uuid.New(),
			UserID:           userID,
			ImportID:         importID,
			Date:             parsed.Date,
			Amount:           parsed.Amount,
			Currency:         currency,
			CounterParty:     parsed.CounterParty,
			OrigCounterParty: parsed.RawCounterParty,
			AccountID:        accountID,
		}
		if parsed.Additional != "" {
			additional := parsed.Additional
			row.Additional = &additional
		}
		if name := strings.TrimSpace(parsed.CategoryName); name != "" {
			key := strings.ToLower(name)
			candidateID, ok := categoryIDs[key]
			if !ok {
				candidateID = uuid.New()
				categoryIDs[key] = candidateID
			}
			row.CategoryName = &name
			row.CategoryID = &candidateID
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return "", 0, apperrors.WithMessage(apperrors.ErrUnparsableStatement, "statement contains no transactions")
	}

	if err := s.db.CreateInBatches(rows, 1000).Error; err != nil {
		return "", 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return importID, len(rows), nil
}

// RunImportMerge moves an import's staged rows into the ledger. Each
// batch is one database transaction; the import is done when a batch
// finds no rows left.
func (s *importService) RunImportMerge(userID, importID string) error {
	for {
		n, err := s.mergeBatch(userID, importID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// mergeBatch moves up to batchSize staged rows and reports how many it
// selected. Within one transaction it resolves category names against
// existing categories, creates the missing ones under their carried
// candidate ids, inserts the transactions, and deletes the staged rows.
// All inserts ignore conflicts so a replayed batch changes nothing.
func (s *importService) mergeBatch(userID, importID string) (int, error) {
	var batch []models.ImportRow

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND import_id = ?", userID, importID).
			Order("id ASC").
			Limit(s.batchSize).
			Find(&batch).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(batch) == 0 {
			return nil
		}

		if err := s.resolveCategories(tx, userID, batch); err != nil {
			return err
		}

		transactions := make([]models.Transaction, 0, len(batch))
		rowIDs := make([]string, 0, len(batch))
		for _, row := range batch {
			rowIDs = append(rowIDs, row.ID)
			transactions = append(transactions, models.Transaction{
				Base:             models.Base{ID: row.ID},
				UserID:           row.UserID,
				Date:             row.Date,
				Amount:           row.Amount,
				Currency:         row.Currency,
				CounterParty:     row.CounterParty,
				OrigCounterParty: row.OrigCounterParty,
				Additional:       row.Additional,
				AccountID:        row.AccountID,
				CategoryID:       row.CategoryID,
			})
		}
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(transactions, 1000).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		err = tx.Where("user_id = ? AND id IN ?", userID, rowIDs).
			Delete(&models.ImportRow{}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// resolveCategories rewrites each staged row's category id in place:
// names matching an existing category (case-insensitively) adopt its id,
// and the rest are created under their carried candidate ids. Rows that
// share a name but carry different candidate ids (staged by separate
// imports, say) are canonicalized onto one id before the insert.
func (s *importService) resolveCategories(tx *gorm.DB, userID string, batch []models.ImportRow) error {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range batch {
		if row.CategoryName == nil {
			continue
		}
		key := strings.ToLower(*row.CategoryName)
		if !seen[key] {
			seen[key] = true
			names = append(names, key)
		}
	}
	if len(names) == 0 {
		return nil
	}

	var existing []models.Category
	err := tx.Where("user_id = ? AND lower(name) IN ?", userID, names).
		Find(&existing).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byName := make(map[string]string, len(existing))
	for _, cat := range existing {
		byName[strings.ToLower(cat.Name)] = cat.ID
	}

	var missing []models.Category
	for i := range batch {
		row := &batch[i]
		if row.CategoryName == nil || row.CategoryID == nil {
			continue
		}
		key := strings.ToLower(*row.CategoryName)
		id, ok := byName[key]
		if !ok {
			id = *row.CategoryID
			byName[key] = id
			missing = append(missing, models.Category{
				Base:   models.Base{ID: id},
				UserID: userID,
				Name:   *row.CategoryName,
			})
		}
		row.CategoryID = &id
	}

	if len(missing) > 0 {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(missing).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// RecoverPendingImports resumes any merges interrupted by a restart.
// Staged rows are the only persisted state a merge has, so any
// (user, import) pair still present in staging is by definition
// unfinished. Each is resumed on its own goroutine; failures are logged
// and left staged for the next restart.
func (s *importService) RecoverPendingImports() {
	log := logger.Get()

	type pendingImport struct {
		UserID   string
		ImportID string
	}
	var pending []pendingImport
	err := s.db.Model(&models.ImportRow{}).
		Distinct("user_id", "import_id").
		Find(&pending).Error
	if err != nil {
		log.Errorw("failed to scan for pending imports", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Infow("resuming interrupted imports", "count", len(pending))
	for _, p := range pending {
		go func(userID, importID string) {
			if err := s.RunImportMerge(userID, importID); err != nil {
				log.Errorw("import merge recovery failed",
					"user_id", userID, "import_id", importID, "error", err)
				return
			}
			log.Infow("import merge recovered", "user_id", userID, "import_id", importID)
		}(p.UserID, p.ImportID)
	}
}
