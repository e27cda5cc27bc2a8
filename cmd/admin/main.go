// Command admin is the operator CLI for user roles, bans and listing stats.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	app := &adminApp{}
	root := &cobra.Command{
		Use:   "admin",
		Short: "Earth & Home operator tools",
		Long: `admin manages users and inspects listings directly against the database.
Users may be given by id or email address.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.connect(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.close()
		},
	}
	root.SetOut(os.Stdout)

	root.AddCommand(
		app.promoteCmd(),
		app.demoteCmd(),
		app.banCmd(),
		app.unbanCmd(),
		app.usersCmd(),
		app.statsCmd(),
	)
	return root
}

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}
