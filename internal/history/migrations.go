package history

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationFile represents a migration file
type migrationFile struct {
	version int
	name    string
	upSQL   string
	downSQL string
}

// RunMigrations runs all pending migrations using the provided database
// connection. Migration files are read from embed.FS and executed directly,
// which works with any database/sql driver including modernc.org/sqlite.
func RunMigrations(db *sql.DB) error {
	currentVersion, dirty, err := getMigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in a dirty migration state (version %d), manual intervention required", currentVersion)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, migration := range migrations {
		if migration.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.version, err)
		}

		if _, err := tx.Exec(migration.upSQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", migration.version, migration.name, err)
		}

		if err := setMigrationVersion(tx, migration.version, false); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.version, err)
		}
	}

	return nil
}

// RollbackMigrations rolls back the newest count migrations (at least one)
// and returns the version the schema lands on. Only migrations that ship a
// down file can be rolled back.
func RollbackMigrations(db *sql.DB, count int) (int, error) {
	if count <= 0 {
		count = 1
	}

	currentVersion, dirty, err := getMigrationVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		return 0, fmt.Errorf("database is in a dirty migration state (version %d), manual intervention required", currentVersion)
	}

	if currentVersion == 0 {
		return 0, fmt.Errorf("no migrations to rollback")
	}

	migrations, err := loadMigrations()
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	// Collect applied migrations newest first.
	toRollback := make([]migrationFile, 0, count)
	for i := len(migrations) - 1; i >= 0 && len(toRollback) < count; i-- {
		migration := migrations[i]
		if migration.version <= currentVersion && migration.downSQL != "" {
			toRollback = append(toRollback, migration)
		}
	}

	if len(toRollback) == 0 {
		return currentVersion, fmt.Errorf("no migrations found to rollback")
	}

	for _, migration := range toRollback {
		tx, err := db.Begin()
		if err != nil {
			return currentVersion, fmt.Errorf("failed to begin transaction for rollback %d: %w", migration.version, err)
		}

		if _, err := tx.Exec(migration.downSQL); err != nil {
			tx.Rollback()
			return currentVersion, fmt.Errorf("failed to execute rollback %d (%s): %w", migration.version, migration.name, err)
		}

		if err := removeMigrationVersion(tx, migration.version); err != nil {
			tx.Rollback()
			return currentVersion, fmt.Errorf("failed to remove migration version %d: %w", migration.version, err)
		}

		if err := tx.Commit(); err != nil {
			return currentVersion, fmt.Errorf("failed to commit rollback %d: %w", migration.version, err)
		}

		currentVersion = migration.version - 1
	}

	return currentVersion, nil
}

// removeMigrationVersion removes a migration version from the database
func removeMigrationVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version)
	return err
}

// loadMigrations loads all migration files from embed.FS
func loadMigrations() ([]migrationFile, error) {
	upPattern := regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)
	downPattern := regexp.MustCompile(`^(\d+)_(.+)\.down\.sql$`)

	migrationMap := make(map[int]*migrationFile)

	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		var version int
		var name string
		var isUp bool

		if matches := upPattern.FindStringSubmatch(d.Name()); len(matches) == 3 {
			version, err = strconv.Atoi(matches[1])
			if err != nil {
				return fmt.Errorf("invalid migration version in %s: %w", d.Name(), err)
			}
			name = matches[2]
			isUp = true
		} else if matches := downPattern.FindStringSubmatch(d.Name()); len(matches) == 3 {
			version, err = strconv.Atoi(matches[1])
			if err != nil {
				return fmt.Errorf("invalid migration version in %s: %w", d.Name(), err)
			}
			name = matches[2]
			isUp = false
		} else {
			return nil
		}

		migration, exists := migrationMap[version]
		if !exists {
			migration = &migrationFile{
				version: version,
				name:    name,
			}
			migrationMap[version] = migration
		}

		file, err := migrationsFS.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open migration file %s: %w", path, err)
		}
		defer file.Close()

		sqlBytes, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", path, err)
		}

		if isUp {
			migration.upSQL = string(sqlBytes)
		} else {
			migration.downSQL = string(sqlBytes)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	migrations := make([]migrationFile, 0, len(migrationMap))
	for _, migration := range migrationMap {
		migrations = append(migrations, *migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

// getMigrationVersion gets the current migration version from the database
func getMigrationVersion(db *sql.DB) (version int, dirty bool, err error) {
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var v sql.NullInt64
	var d sql.NullBool
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&v, &d)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query migration version: %w", err)
	}

	version = int(v.Int64)
	if d.Valid {
		dirty = d.Bool
	}

	return version, dirty, nil
}

// setMigrationVersion records a migration version in the database
func setMigrationVersion(tx *sql.Tx, version int, dirty bool) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO schema_migrations (version, dirty)
		VALUES (?, ?)
	`, version, dirty)
	return err
}
