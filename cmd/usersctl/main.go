package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/storefront-users/cmd/usersctl/ui"
	"github.com/redmonkez12/storefront-users/internal/auth"
	"github.com/redmonkez12/storefront-users/internal/config"
	"github.com/redmonkez12/storefront-users/internal/database"
	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "usersctl",
		Short:         "Maintenance tasks for the storefront user service",
		Long:          "Apply migrations, load fixture accounts and bootstrap administrators using the same environment as the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the bundled fixture accounts",
		RunE:  runSeed,
	}

	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE:  runCreateAdmin,
	}

	// Flags for non-interactive mode (CI/scripting)
	createAdminCmd.Flags().String("name", "", "Display name")
	createAdminCmd.Flags().String("email", "", "Login email")
	createAdminCmd.Flags().String("password", "", "Password (prompted when omitted)")

	rootCmd.AddCommand(migrateCmd, seedCmd, createAdminCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

type env struct {
	cfg    *config.Config
	db     *bun.DB
	logger *logging.Logger
}

// setup loads configuration and opens the database, migrating it first
// unless auto migration is turned off
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cmd.Context(), db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &env{cfg: cfg, db: db, logger: logger}, nil
}

func (e *env) userService() (*user.Service, error) {
	hasher, err := auth.NewHasher(e.cfg.Auth.PasswordHasher, e.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	return user.NewService(user.NewRepository(e.db), hasher, e.cfg.Auth.ProtectedAdminEmail, e.logger), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Migrations applied (%s)", cfg.Database.Driver))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.db.Close()

	svc, err := e.userService()
	if err != nil {
		return err
	}

	created, err := svc.Seed(cmd.Context())
	if errors.Is(err, user.ErrDuplicateEmail) {
		ui.PrintInfo("Fixture accounts already exist, nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}

	ui.PrintTitle("Seeded accounts")
	ui.PrintUsers(created)
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	in := ui.AdminInput{Name: name, Email: email, Password: password}

	// Interactive mode
	if !in.Complete() {
		fmt.Println()
		ui.PrintTitle("Create admin account")

		var err error
		in, err = ui.RunAdminForm(in)
		if err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.db.Close()

	svc, err := e.userService()
	if err != nil {
		return err
	}

	created, err := svc.CreateAdmin(cmd.Context(), in.Name, in.Email, in.Password)
	if errors.Is(err, user.ErrDuplicateEmail) {
		return fmt.Errorf("an account with email %s already exists", in.Email)
	}
	if err != nil {
		return err
	}

	ui.PrintSuccess("Admin account created")
	ui.PrintUsers([]*user.User{created})
	return nil
}
