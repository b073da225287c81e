package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/dental-api/internal/app"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/postgres"
	"github.com/jwalitptl/dental-api/pkg/security"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinicctl",
		Short:        "Operational commands for the dental appointment API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Directory containing config.yaml")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		return config.LoadConfig()
	}
	return config.LoadConfig(dir)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// withStore opens storage for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, store *repository.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("clinicctl needs the postgres driver, got %q", cfg.Storage.Driver)
	}
	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, cfg, store)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue pending and confirmed appointments as no_show",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, store *repository.Store) error {
				if limit <= 0 {
					limit = cfg.Clinic.SweepBatchSize
				}
				services, err := app.NewServices(app.Deps{
					Config: cfg,
					Store:  store,
					Mailer: app.NewMailer(cfg.SMTP, newLogger()),
					Logger: newLogger(),
				})
				if err != nil {
					return err
				}
				defer services.Notifier.Wait()

				res, err := services.Appointments.AutoUpdateOverdueAppointments(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d processed=%d failed=%d\n", res.Scanned, res.Processed, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum appointments to process (default: clinic.sweep_batch_size)")
	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage the bookable time slot catalog",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the default half-hourly catalog, or the given --time values",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetStringSlice("time")
			times := model.DefaultSlotTimes()
			if len(raw) > 0 {
				times = times[:0]
				for _, s := range raw {
					t, err := model.ParseTimeOfDay(s)
					if err != nil {
						return err
					}
					times = append(times, t)
				}
			}

			return withStore(cmd, func(ctx context.Context, cfg *config.Config, store *repository.Store) error {
				services, err := app.NewServices(app.Deps{Config: cfg, Store: store, Logger: newLogger()})
				if err != nil {
					return err
				}
				created, err := services.Availability.SeedSlots(ctx, times)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d slots\n", created, len(times))
				return nil
			})
		},
	}
	seedCmd.Flags().StringSlice("time", nil, "Slot times in HH:MM (repeatable)")
	cmd.AddCommand(seedCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, store *repository.Store) error {
				slots, err := store.TimeSlots.List(ctx, false)
				if err != nil {
					return err
				}
				for _, s := range slots {
					state := "active"
					if !s.Active {
						state = "inactive"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.Time, state, s.ID)
				}
				return nil
			})
		},
	})
	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, store *repository.Store) error {
				created, err := app.EnsureAdmin(ctx, store.Users, security.NewBcryptHasher(0), email, password)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", email)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", email)
				return nil
			})
		},
	}
	createCmd.Flags().String("email", "", "Admin email")
	createCmd.Flags().String("password", "", "Admin password")
	cmd.AddCommand(createCmd)
	return cmd
}
