package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ruraldata/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists record generations. The loader writes a whole
// generation in one transaction and flips it active; the API server reads the
// active generation back into an in-memory snapshot.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// StoreGeneration writes a complete generation and makes it the active one in
// a single transaction. Prior generations and their rows are pruned in the
// same transaction, so the table never holds a partially visible load.
func (r *SQLiteRepository) StoreGeneration(ctx context.Context, gen Generation, records []core.InvestmentRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin generation transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO generations (id, source_file, record_count, loaded_at, active)
		 VALUES (?, ?, ?, ?, 0)`,
		gen.ID, gen.SourceFile, len(records), gen.LoadedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO investments (
			generation_id, fiscal_year, state_name, county, program_area,
			program, investment_type, investment_dollars, number_of_investments,
			borrower_name, city, lender_name, project_name, zip_code
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare investment insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		_, err := stmt.ExecContext(ctx,
			gen.ID, rec.FiscalYear, rec.StateName, rec.County, rec.ProgramArea,
			rec.Program, rec.InvestmentType, rec.InvestmentDollars, rec.NumberOfInvestments,
			rec.BorrowerName, rec.City, rec.LenderName, rec.ProjectName, rec.ZipCode)
		if err != nil {
			return fmt.Errorf("insert investment row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM investments WHERE generation_id != ?`, gen.ID); err != nil {
		return fmt.Errorf("prune old investment rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE id != ?`, gen.ID); err != nil {
		return fmt.Errorf("prune old generations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE generations SET active = 1 WHERE id = ?`, gen.ID); err != nil {
		return fmt.Errorf("activate generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit generation: %w", err)
	}

	slog.InfoContext(ctx, "Generation stored",
		"generation", gen.ID,
		"source_file", gen.SourceFile,
		"record_count", len(records))

	return nil
}

// LoadActiveSnapshot reads the active generation into an immutable snapshot.
// Rows come back in insertion order, which fixes the pagination order.
func (r *SQLiteRepository) LoadActiveSnapshot(ctx context.Context) (*Snapshot, error) {
	var gen Generation
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source_file, record_count, loaded_at
		 FROM generations WHERE active = 1`).
		Scan(&gen.ID, &gen.SourceFile, &gen.RecordCount, &gen.LoadedAt)
	if err == sql.ErrNoRows {
		return nil, core.NewStoreUnavailable("no active generation in store")
	}
	if err != nil {
		return nil, fmt.Errorf("select active generation: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fiscal_year, state_name, county, program_area,
			program, investment_type, investment_dollars, number_of_investments,
			borrower_name, city, lender_name, project_name, zip_code
		 FROM investments WHERE generation_id = ? ORDER BY id`, gen.ID)
	if err != nil {
		return nil, fmt.Errorf("select investment rows: %w", err)
	}
	defer rows.Close()

	records := make([]core.InvestmentRecord, 0, gen.RecordCount)
	for rows.Next() {
		var rec core.InvestmentRecord
		err := rows.Scan(
			&rec.ID, &rec.FiscalYear, &rec.StateName, &rec.County, &rec.ProgramArea,
			&rec.Program, &rec.InvestmentType, &rec.InvestmentDollars, &rec.NumberOfInvestments,
			&rec.BorrowerName, &rec.City, &rec.LenderName, &rec.ProjectName, &rec.ZipCode)
		if err != nil {
			return nil, fmt.Errorf("scan investment row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investment rows: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot loaded from store",
		"generation", gen.ID,
		"record_count", len(records))

	return NewSnapshot(gen, records), nil
}
