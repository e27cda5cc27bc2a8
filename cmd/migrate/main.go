// Command migrate applies, inspects and rolls back the listing schema.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"earthhome/internal/config"
	"earthhome/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

type migrateApp struct {
	cfg      *config.Config
	db       *gorm.DB
	migrator *database.Migrator
}

func newRootCmd() *cobra.Command {
	app := &migrateApp{}
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the Earth & Home listing schema",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.connect()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.close()
		},
	}
	root.SetOut(os.Stdout)
	root.AddCommand(app.upCmd(), app.autoCmd(), app.statusCmd(), app.verifyCmd(), app.downCmd())
	return root
}

func (a *migrateApp) connect() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	migrator, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	a.cfg, a.db, a.migrator = cfg, db, migrator
	return nil
}

func (a *migrateApp) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *migrateApp) upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := a.migrator.Up(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				cmd.Println("schema is up to date")
				return nil
			}
			for _, m := range applied {
				cmd.Printf("applied %s\n", m)
			}
			return nil
		},
	}
}

func (a *migrateApp) autoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for the listing models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), a.db, a.cfg); err != nil {
				return err
			}
			cmd.Println("models migrated")
			return nil
		},
	}
}

func (a *migrateApp) status(cmd *cobra.Command) (*database.SchemaStatus, error) {
	plan, err := database.PlanSchema(a.cfg)
	if err != nil {
		return nil, err
	}
	return a.migrator.Status(cmd.Context(), plan, a.cfg.Env)
}

func (a *migrateApp) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations and required schema objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.status(cmd)
			if err != nil {
				return err
			}
			printStatus(cmd, status)
			return nil
		},
	}
}

func (a *migrateApp) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Exit non-zero unless the schema is complete and unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.status(cmd)
			if err != nil {
				return err
			}
			if status.Ready() {
				cmd.Println("schema ready")
				return nil
			}
			printStatus(cmd, status)
			return errors.New("schema is not ready")
		},
	}
}

func (a *migrateApp) downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down <version>",
		Short: "Roll back the newest applied migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := a.migrator.Down(cmd.Context(), version); err != nil {
				return err
			}
			cmd.Printf("rolled back %06d\n", version)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, s *database.SchemaStatus) {
	cmd.Printf("env=%s dialect=%s mode=%s run_sql=%t run_auto=%t\n",
		s.Environment, s.Dialect, s.Plan.Mode, s.Plan.RunSQL, s.Plan.RunAuto)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tAPPLIED AT")
	for _, m := range s.Applied {
		state := "applied"
		switch {
		case m.Unknown:
			state = "unknown"
		case m.Drifted:
			state = "edited"
		}
		_, _ = fmt.Fprintf(tw, "%06d\t%s\t%s\t%s\n", m.Version, m.Name, state, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range s.Pending {
		_, _ = fmt.Fprintf(tw, "%06d\t%s\tpending\t-\n", m.Version, m.Name)
	}
	_ = tw.Flush()

	if missing := s.Missing(); len(missing) > 0 {
		cmd.Printf("missing: %s\n", strings.Join(missing, ", "))
	}
}

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}
