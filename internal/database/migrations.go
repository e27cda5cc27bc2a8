package database

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"sync"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var (
	migrationFileName = regexp.MustCompile(`^(\d{6})_([a-z0-9_]+)\.(up|down)\.sql$`)
	createsExtension  = regexp.MustCompile(`(?i)CREATE\s+EXTENSION\s+IF\s+NOT\s+EXISTS\s+"?(\w+)"?`)
	createsEnum       = regexp.MustCompile(`(?i)CREATE\s+TYPE\s+"?(\w+)"?\s+AS\s+ENUM`)
)

// Migration is one versioned change to the listing schema.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
	// Checksum is the hex sha256 of Up. The ledger keeps it so edits to an
	// applied migration are caught.
	Checksum string
	// Postgres extensions and enum types the up script creates.
	Extensions []string
	EnumTypes  []string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Catalog is the ordered set of known migrations.
type Catalog []Migration

var loadEmbedded = sync.OnceValues(func() (Catalog, error) {
	return ParseCatalog(embeddedMigrations, "migrations")
})

// Migrations returns the catalog compiled into the binary.
func Migrations() (Catalog, error) {
	return loadEmbedded()
}

// ParseCatalog reads NNNNNN_name.up.sql and .down.sql pairs from dir. Every
// file must follow that pattern and every version needs both halves.
func ParseCatalog(fsys fs.FS, dir string) (Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := map[int]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFileName.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration file %q does not match NNNNNN_name.(up|down).sql", entry.Name())
		}
		version, _ := strconv.Atoi(match[1])
		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: match[2]}
			byVersion[version] = m
		}
		if m.Name != match[2] {
			return nil, fmt.Errorf("migration %06d has two names: %s and %s", version, m.Name, match[2])
		}
		if match[3] == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	cat := make(Catalog, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s needs both up and down scripts", m)
		}
		sum := sha256.Sum256([]byte(m.Up))
		m.Checksum = hex.EncodeToString(sum[:])
		m.Extensions = submatches(createsExtension, m.Up)
		m.EnumTypes = submatches(createsEnum, m.Up)
		cat = append(cat, *m)
	}
	sort.Slice(cat, func(i, j int) bool { return cat[i].Version < cat[j].Version })
	return cat, nil
}

// Find returns the migration with the given version.
func (c Catalog) Find(version int) (Migration, bool) {
	i, ok := slices.BinarySearchFunc(c, version, func(m Migration, v int) int { return m.Version - v })
	if !ok {
		return Migration{}, false
	}
	return c[i], true
}

// Extensions lists every extension the catalog installs.
func (c Catalog) Extensions() []string {
	var out []string
	for _, m := range c {
		out = append(out, m.Extensions...)
	}
	return dedupe(out)
}

// EnumTypes lists every enum type the catalog creates.
func (c Catalog) EnumTypes() []string {
	var out []string
	for _, m := range c {
		out = append(out, m.EnumTypes...)
	}
	return dedupe(out)
}

func submatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func dedupe(names []string) []string {
	slices.Sort(names)
	return slices.Compact(names)
}
