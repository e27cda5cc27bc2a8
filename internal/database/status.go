package database

import (
	"context"
	"fmt"

	"earthhome/internal/config"

	"gorm.io/gorm"
)

// ObjectCheck records whether a schema object exists.
type ObjectCheck struct {
	Name    string
	Present bool
}

// AppliedMigration is a ledger row compared with the catalog.
type AppliedMigration struct {
	LedgerEntry
	// Drifted is set when the script in this build differs from the one applied.
	Drifted bool
	// Unknown is set when this build has no migration with the version.
	Unknown bool
}

// SchemaStatus is a read-only report on the listing schema.
type SchemaStatus struct {
	Plan        SchemaPlan
	Environment string
	Dialect     string
	Applied     []AppliedMigration
	Pending     []Migration
	Tables      []ObjectCheck
	// Enum types and extensions are only inspected on postgres.
	EnumTypes  []ObjectCheck
	Extensions []ObjectCheck
}

// Ready reports whether nothing is pending, drifted or missing.
func (s *SchemaStatus) Ready() bool {
	if len(s.Pending) > 0 {
		return false
	}
	for _, a := range s.Applied {
		if a.Drifted || a.Unknown {
			return false
		}
	}
	for _, group := range [][]ObjectCheck{s.Tables, s.EnumTypes, s.Extensions} {
		for _, c := range group {
			if !c.Present {
				return false
			}
		}
	}
	return true
}

// Missing lists absent tables, enum types and extensions.
func (s *SchemaStatus) Missing() []string {
	var out []string
	for _, c := range s.Tables {
		if !c.Present {
			out = append(out, "table "+c.Name)
		}
	}
	for _, c := range s.EnumTypes {
		if !c.Present {
			out = append(out, "enum "+c.Name)
		}
	}
	for _, c := range s.Extensions {
		if !c.Present {
			out = append(out, "extension "+c.Name)
		}
	}
	return out
}

// GetSchemaStatus inspects db without changing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	return migrator.Status(ctx, plan, cfg.Env)
}

// Status reports ledger drift, pending migrations and the presence of the
// tables, enum types and extensions the catalog and models need.
func (m *Migrator) Status(ctx context.Context, plan SchemaPlan, env string) (*SchemaStatus, error) {
	db := m.db.WithContext(ctx)
	rows, err := ledger(db)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Plan:        plan,
		Environment: env,
		Dialect:     db.Dialector.Name(),
		Pending:     m.pending(rows),
	}
	for _, r := range rows {
		a := AppliedMigration{LedgerEntry: r}
		if mig, ok := m.catalog.Find(r.Version); !ok {
			a.Unknown = true
		} else {
			a.Drifted = r.Checksum != "" && r.Checksum != mig.Checksum
		}
		status.Applied = append(status.Applied, a)
	}

	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		status.Tables = append(status.Tables, ObjectCheck{
			Name:    stmt.Schema.Table,
			Present: db.Migrator().HasTable(stmt.Schema.Table),
		})
	}

	if status.Dialect == "postgres" {
		status.EnumTypes, err = presentIn(db, "SELECT typname FROM pg_type WHERE typtype = 'e' AND typname IN ?", m.catalog.EnumTypes())
		if err != nil {
			return nil, fmt.Errorf("inspect enum types: %w", err)
		}
		status.Extensions, err = presentIn(db, "SELECT extname FROM pg_extension WHERE extname IN ?", m.catalog.Extensions())
		if err != nil {
			return nil, fmt.Errorf("inspect extensions: %w", err)
		}
	}
	return status, nil
}

// presentIn runs query with names bound to its IN list and marks which came back.
func presentIn(db *gorm.DB, query string, names []string) ([]ObjectCheck, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var found []string
	if err := db.Raw(query, names).Scan(&found).Error; err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(found))
	for _, n := range found {
		have[n] = true
	}
	checks := make([]ObjectCheck, 0, len(names))
	for _, n := range names {
		checks = append(checks, ObjectCheck{Name: n, Present: have[n]})
	}
	return checks, nil
}
