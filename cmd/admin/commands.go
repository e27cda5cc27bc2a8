package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"earthhome/internal/cache"
	"earthhome/internal/config"
	"earthhome/internal/database"
	"earthhome/internal/models"
	"earthhome/internal/repository"
	"earthhome/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type adminApp struct {
	db         *gorm.DB
	users      repository.UserRepository
	properties repository.PropertyRepository
	admin      *service.AdminService
}

func (a *adminApp) connect(_ context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	// Sessions are revoked in Redis too when it is reachable.
	cache.InitRedis(cfg.RedisURL)

	a.db = db
	a.users = repository.NewUserRepository(db)
	a.properties = repository.NewPropertyRepository(db)
	a.admin = service.NewAdminService(a.users, repository.NewSessionRepository(db), service.DefaultTokenTTL)
	return nil
}

func (a *adminApp) close() {
	cache.Close()
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// resolve looks a user up by email when ref contains "@", otherwise by id.
func (a *adminApp) resolve(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "@") {
		return a.users.GetByEmail(ctx, strings.ToLower(ref))
	}
	return a.users.GetByID(ctx, ref)
}

func (a *adminApp) roleCmd(use, short, role string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if user.Role == role {
				cmd.Printf("%s <%s> already has role %s\n", user.Name, user.Email, role)
				return nil
			}
			updated, err := a.admin.SetRole(ctx, nil, user.ID, role)
			if err != nil {
				return err
			}
			cmd.Printf("%s <%s> is now %s\n", updated.Name, updated.Email, updated.Role)
			return nil
		},
	}
}

func (a *adminApp) promoteCmd() *cobra.Command {
	return a.roleCmd("promote", "Grant the admin role", models.RoleAdmin)
}

func (a *adminApp) demoteCmd() *cobra.Command {
	return a.roleCmd("demote", "Remove the admin role", models.RoleUser)
}

func (a *adminApp) banCmd() *cobra.Command {
	var reason string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "ban <user>",
		Short: "Ban a user and revoke their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			in := service.BanInput{Reason: reason}
			if duration > 0 {
				expires := time.Now().Add(duration)
				in.Expires = &expires
			}
			banned, err := a.admin.BanUser(ctx, nil, user.ID, in)
			if err != nil {
				return err
			}
			until := "indefinitely"
			if banned.BanExpires != nil {
				until = "until " + banned.BanExpires.Format(time.RFC3339)
			}
			cmd.Printf("banned %s <%s> %s\n", banned.Name, banned.Email, until)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the user at sign-in")
	cmd.Flags().DurationVar(&duration, "for", 0, "Ban length, e.g. 72h (default: indefinite)")
	return cmd
}

func (a *adminApp) unbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user>",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			updated, err := a.admin.UnbanUser(ctx, user.ID)
			if err != nil {
				return err
			}
			cmd.Printf("unbanned %s <%s>\n", updated.Name, updated.Email)
			return nil
		},
	}
}

func (a *adminApp) usersCmd() *cobra.Command {
	var search string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.admin.ListUsers(cmd.Context(), search, page, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tBANNED")
			for _, u := range res.Users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsBanned(time.Now()))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			p := res.Pagination
			cmd.Printf("page %d of %d (%d users)\n", p.Page, p.TotalPages, p.TotalCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Name or email substring")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultPageLimit, "Page size")
	return cmd
}

func (a *adminApp) statsCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Listing counts, globally or for one agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			agentID := ""
			if agent != "" {
				user, err := a.resolve(ctx, agent)
				if err != nil {
					return err
				}
				agentID = user.ID
			}
			stats, err := a.properties.Stats(ctx, agentID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "total\t%d\n", stats.TotalProperties)
			fmt.Fprintf(w, "active\t%d\n", stats.ActiveProperties)
			fmt.Fprintf(w, "sold\t%d\n", stats.SoldProperties)
			fmt.Fprintf(w, "rented\t%d\n", stats.RentedProperties)
			fmt.Fprintf(w, "draft\t%d\n", stats.DraftProperties)
			fmt.Fprintf(w, "featured\t%d\n", stats.FeaturedProperties)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Restrict to one agent (id or email)")
	return cmd
}
