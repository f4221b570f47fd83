package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
	"github.com/noah-isme/mailbridge/pkg/config"
	"github.com/noah-isme/mailbridge/pkg/database"
)

// SQLiteSource reads rows and attachment blobs from snapshot copies of the
// desktop database. Table and column names are matched by exact string; there
// is no schema migration support.
type SQLiteSource struct {
	table     string
	keyColumn string
	attTable  string
	logger    *zap.Logger
}

// NewSQLiteSource constructs the adapter.
func NewSQLiteSource(cfg config.SourceConfig, logger *zap.Logger) *SQLiteSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteSource{
		table:     cfg.Table,
		keyColumn: cfg.KeyColumn,
		attTable:  cfg.AttachmentTable,
		logger:    logger,
	}
}

// Open opens the snapshot at dbPath for one cycle.
func (s *SQLiteSource) Open(ctx context.Context, dbPath string) (*Snapshot, error) {
	db, err := database.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return NewSnapshot(db, s.table, s.keyColumn, s.attTable), nil
}

// Snapshot is one cycle's read-only view of a snapshot copy.
type Snapshot struct {
	db        *sqlx.DB
	table     string
	keyColumn string
	attTable  string
}

// NewSnapshot wraps an open database handle. Exposed separately so tests can
// drive the reader with a mocked handle.
func NewSnapshot(db *sqlx.DB, table, keyColumn, attTable string) *Snapshot {
	return &Snapshot{db: db, table: table, keyColumn: keyColumn, attTable: attTable}
}

// Rows returns every row of the source table as a column-name → value map.
func (s *Snapshot) Rows(ctx context.Context) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s", quoteIdent(s.table))
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", s.table, err)
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table %s: %w", s.table, err)
	}
	return result, nil
}

// Attachments returns the child files linked to the record with the given
// key, in insertion order. An unconfigured attachment table yields none.
func (s *Snapshot) Attachments(ctx context.Context, key string) ([]models.SourceFile, error) {
	if s.attTable == "" {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT file_name, file_data FROM %s WHERE %s = ? ORDER BY rowid",
		quoteIdent(s.attTable), quoteIdent(s.keyColumn))
	rows, err := s.db.QueryxContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("read attachments for %s: %w", key, err)
	}
	defer rows.Close()

	var files []models.SourceFile
	for rows.Next() {
		var file models.SourceFile
		if err := rows.Scan(&file.Name, &file.Data); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments for %s: %w", key, err)
	}
	return files, nil
}

// Close releases the snapshot handle.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// quoteIdent wraps an identifier in double quotes; source table names contain
// spaces.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
