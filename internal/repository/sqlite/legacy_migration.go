package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"formscan/internal/domain"
	"formscan/internal/legacy"
)

const (
	legacyTable        = "legacy_scans"
	legacyBackupTable  = "legacy_scans_backup"
	legacyMigratedFlag = "legacy_migrated_at"
)

type legacyRow struct {
	ID          sql.NullString `db:"id"`
	NSN         sql.NullString `db:"nsn"`
	Description sql.NullString `db:"description"`
	Quantity    sql.NullInt64  `db:"quantity"`
	ImageURI    sql.NullString `db:"image_uri"`
	ScannedAt   sql.NullString `db:"scanned_at"`
}

var scannedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r *legacyRow) flat() legacy.FlatScan {
	f := legacy.FlatScan{
		ID:          r.ID.String,
		NSN:         r.NSN.String,
		Description: r.Description.String,
		Quantity:    int(r.Quantity.Int64),
		ImageURI:    r.ImageURI.String,
	}
	s := strings.TrimSpace(r.ScannedAt.String)
	for _, layout := range scannedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.ScannedAt = t
			break
		}
	}
	return f
}

// MigrateLegacy moves rows of the old flat legacy_scans table into
// scan_records. It runs at most once per database: the copy, the backup of
// the old rows into legacy_scans_backup, the clearing of legacy_scans and the
// completion flag in app_meta share one transaction, so a failed run leaves
// everything as it was and can be retried. It returns the number of records
// written, which is 0 when the migration already ran or there is no legacy
// table.
func MigrateLegacy(ctx context.Context, db *sqlx.DB) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", domain.ErrLegacyMigrationFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := migrateLegacy(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrLegacyMigrationFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrLegacyMigrationFailed, err)
	}
	return n, nil
}

func migrateLegacy(ctx context.Context, tx *sqlx.Tx) (int, error) {
	var done string
	err := tx.GetContext(ctx, &done, "SELECT value FROM app_meta WHERE key = ?", legacyMigratedFlag)
	switch {
	case err == nil:
		log.Printf("sqlite.MigrateLegacy: already migrated at %s", done)
		return 0, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("reading migration flag: %w", err)
	}

	var tables int
	if err := tx.GetContext(ctx, &tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", legacyTable); err != nil {
		return 0, fmt.Errorf("looking up %s: %w", legacyTable, err)
	}

	migrated := 0
	if tables > 0 {
		var rows []legacyRow
		err := tx.SelectContext(ctx, &rows,
			`SELECT CAST(id AS TEXT) AS id, nsn, description, quantity, image_uri, CAST(scanned_at AS TEXT) AS scanned_at
			 FROM `+legacyTable)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", legacyTable, err)
		}

		for i := range rows {
			f := rows[i].flat()
			rec, err := legacy.ToRecord(&f)
			if err != nil {
				return 0, err
			}
			if err := insertRecord(ctx, tx, rec); err != nil {
				return 0, fmt.Errorf("writing record for legacy scan %q: %w", f.ID, err)
			}
			migrated++
		}

		backup := []string{
			"CREATE TABLE IF NOT EXISTS " + legacyBackupTable + " AS SELECT * FROM " + legacyTable + " WHERE 0",
			"INSERT INTO " + legacyBackupTable + " SELECT * FROM " + legacyTable,
			"DELETE FROM " + legacyTable,
		}
		for _, stmt := range backup {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, fmt.Errorf("backing up %s: %w", legacyTable, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO app_meta (key, value) VALUES (?, ?)",
		legacyMigratedFlag, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("setting migration flag: %w", err)
	}

	log.Printf("sqlite.MigrateLegacy: migrated %d legacy scans", migrated)
	return migrated, nil
}
