package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"classroomhub/internal/authz"
	"classroomhub/internal/models"
	"classroomhub/internal/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		// openApp migrates, so there is nothing left to do
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			a.log.Info("database schema is up to date", zap.String("type", a.cfg.DatabaseType))
			return nil
		}),
	}
}

func setAdminCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "set-admin EMAIL",
		Short: "Grant (or with --revoke, remove) the admin flag",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			user, err := a.auth.FindUserByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.auth.SetAdmin(ctx, authz.System, user.ID, !revoke); err != nil {
				return err
			}
			a.log.Info("admin flag updated", zap.Int64("user_id", user.ID), zap.Bool("is_admin", !revoke))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove the admin flag instead of granting it")
	return cmd
}

func deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user EMAIL",
		Short: "Delete a user who has not authored events or messages",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			user, err := a.auth.FindUserByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.auth.DeleteUser(ctx, authz.System, user.ID); err != nil {
				return err
			}
			a.log.Info("user deleted", zap.Int64("user_id", user.ID))
			return nil
		}),
	}
}

func cleanupSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-sessions",
		Short: "Remove expired login sessions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			removed, err := a.auth.CleanupExpiredSessions(ctx)
			if err != nil {
				return err
			}
			a.log.Info("expired sessions removed", zap.Int64("removed", removed))
			return nil
		}),
	}
}

func createClassroomCmd() *cobra.Command {
	var (
		year int
		name string
	)

	cmd := &cobra.Command{
		Use:   "create-classroom",
		Short: "Create a classroom for a school year",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			classroom, err := a.registry.CreateClassroom(ctx, authz.System, service.ClassroomInput{
				SchoolYearStart: year,
				Name:            name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created classroom %d (%s)\n", classroom.ID, classroom.SchoolYearLabel())
			return nil
		}),
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "First calendar year of the school year")
	cmd.Flags().StringVar(&name, "name", "", "Optional display name")
	return cmd
}

func enrollChildCmd() *cobra.Command {
	var (
		classroomID int64
		firstName   string
		lastName    string
		birthdate   string
	)

	cmd := &cobra.Command{
		Use:   "enroll-child",
		Short: "Enroll a child in a classroom",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			date, err := models.ParseDate(birthdate)
			if err != nil {
				return fmt.Errorf("--birthdate: %w", err)
			}
			child, err := a.registry.EnrollChild(ctx, authz.System, service.ChildInput{
				FirstName:   firstName,
				LastName:    lastName,
				Birthdate:   date,
				ClassroomID: classroomID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "enrolled %s as child %d\n", child.FullName(), child.ID)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&classroomID, "classroom", 0, "Classroom ID")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&birthdate, "birthdate", "", "Birthdate (YYYY-MM-DD)")
	for _, flag := range []string{"classroom", "first-name", "last-name", "birthdate"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

func linkGuardianCmd() *cobra.Command {
	var (
		childID int64
		kind    string
		primary bool
	)

	cmd := &cobra.Command{
		Use:   "link-guardian EMAIL",
		Short: "Link a user to a child",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			user, err := a.auth.FindUserByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			rel, err := a.guardians.LinkGuardian(ctx, authz.System, user.ID, childID, models.RelationshipKind(kind), primary)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "linked user %d to child %d as %s\n", rel.UserID, rel.ChildID, rel.Kind)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&childID, "child", 0, "Child ID")
	cmd.Flags().StringVar(&kind, "type", string(models.RelationshipGuardian), "Relationship type")
	cmd.Flags().BoolVar(&primary, "primary", false, "Mark as primary contact")
	_ = cmd.MarkFlagRequired("child")
	return cmd
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a portable JSON backup",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			// Generate default filename if not provided
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()

			if _, err := a.backup.Export(ctx, file); err != nil {
				return err
			}
			a.log.Info("backup written", zap.String("path", output))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func importCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a JSON backup into an empty database",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			file, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer file.Close()

			backup, err := a.backup.Import(ctx, file)
			if err != nil {
				return err
			}
			a.log.Info("backup restored",
				zap.String("path", input),
				zap.Int("users", len(backup.Users)),
				zap.Int("children", len(backup.Children)),
				zap.Int("events", len(backup.Events)),
			)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
