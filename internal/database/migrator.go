package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"earthhome/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey serialises migrators across instances on postgres.
const migrationLockKey = 0x6561727468 // "earth"

// ErrChecksumMismatch is returned when an applied migration was edited afterwards.
var ErrChecksumMismatch = errors.New("migration changed after it was applied")

// LedgerEntry is a row of the migration_logs table.
type LedgerEntry struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"not null;index"`
}

func (LedgerEntry) TableName() string {
	return "migration_logs"
}

// Migrator applies a Catalog and records progress in migration_logs.
type Migrator struct {
	db      *gorm.DB
	catalog Catalog
	now     func() time.Time
}

// NewMigrator returns a Migrator for the embedded catalog.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	cat, err := Migrations()
	if err != nil {
		return nil, err
	}
	return NewMigratorWithCatalog(db, cat), nil
}

// NewMigratorWithCatalog returns a Migrator for cat.
func NewMigratorWithCatalog(db *gorm.DB, cat Catalog) *Migrator {
	return &Migrator{db: db, catalog: cat, now: time.Now}
}

// Catalog returns the migrations this Migrator knows.
func (m *Migrator) Catalog() Catalog {
	return m.catalog
}

// Applied returns ledger rows in version order. A missing ledger is empty.
func (m *Migrator) Applied(ctx context.Context) ([]LedgerEntry, error) {
	return ledger(m.db.WithContext(ctx))
}

func ledger(db *gorm.DB) ([]LedgerEntry, error) {
	if !db.Migrator().HasTable(&LedgerEntry{}) {
		return nil, nil
	}
	var rows []LedgerEntry
	if err := db.Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return rows, nil
}

// Pending returns catalog entries not yet in the ledger.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	rows, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return m.pending(rows), nil
}

func (m *Migrator) pending(rows []LedgerEntry) []Migration {
	done := make(map[int]bool, len(rows))
	for _, r := range rows {
		done[r.Version] = true
	}
	var pending []Migration
	for _, mig := range m.catalog {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending
}

// Verify checks the ledger against the catalog: every applied version must
// be known and unchanged. Rows recorded without a checksum are accepted.
func (m *Migrator) Verify(rows []LedgerEntry) error {
	for _, r := range rows {
		mig, ok := m.catalog.Find(r.Version)
		if !ok {
			return fmt.Errorf("migration_logs has version %06d (%s) which this build does not know", r.Version, r.Name)
		}
		if r.Checksum != "" && r.Checksum != mig.Checksum {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, mig)
		}
	}
	return nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the ones it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	var applied []Migration
	err := m.locked(ctx, func(db *gorm.DB) error {
		if err := db.AutoMigrate(&LedgerEntry{}); err != nil {
			return fmt.Errorf("prepare migration ledger: %w", err)
		}
		rows, err := ledger(db)
		if err != nil {
			return err
		}
		if err := m.Verify(rows); err != nil {
			return err
		}
		for _, mig := range m.pending(rows) {
			start := time.Now()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Exec(mig.Up).Error; err != nil {
					return err
				}
				return tx.Create(&LedgerEntry{
					Version:   mig.Version,
					Name:      mig.Name,
					Checksum:  mig.Checksum,
					AppliedAt: m.now().UTC(),
				}).Error
			})
			if err != nil {
				return fmt.Errorf("apply %s: %w", mig, err)
			}
			middleware.Logger.Info("migration applied",
				slog.String("migration", mig.String()),
				slog.Duration("elapsed", time.Since(start)))
			applied = append(applied, mig)
		}
		return nil
	})
	return applied, err
}

// Down reverts version, which must be the newest applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig, ok := m.catalog.Find(version)
	if !ok {
		return fmt.Errorf("unknown migration version %d", version)
	}
	return m.locked(ctx, func(db *gorm.DB) error {
		rows, err := ledger(db)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(rows, func(r LedgerEntry) bool { return r.Version == version }) {
			return fmt.Errorf("migration %s has not been applied", mig)
		}
		if latest := rows[len(rows)-1]; latest.Version != version {
			return fmt.Errorf("roll back %06d_%s before %s", latest.Version, latest.Name, mig)
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Down).Error; err != nil {
				return err
			}
			return tx.Delete(&LedgerEntry{}, "version = ?", version).Error
		})
		if err != nil {
			return fmt.Errorf("roll back %s: %w", mig, err)
		}
		middleware.Logger.Info("migration rolled back", slog.String("migration", mig.String()))
		return nil
	})
}

// locked runs fn on a single connection holding the postgres advisory lock.
func (m *Migrator) locked(ctx context.Context, fn func(db *gorm.DB) error) error {
	db := m.db.WithContext(ctx)
	if db.Dialector.Name() != "postgres" {
		return fn(db)
	}
	return db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockKey)
		return fn(conn)
	})
}
