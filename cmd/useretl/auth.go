package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"useretl/pkg/auth"
	"useretl/pkg/storage"
	"useretl/pkg/ui"
)

var skipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored database password",
	Long: `Manage the PostgreSQL password used by 'useretl run'.

Passwords are stored per user@host:port/database using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - PGPASSWORD environment variable (read only)

A password in the configuration file or USERETL_DB_PASSWORD always wins.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the database password",
	Long: `Prompt for the password of the configured database user and store it.

The connection is tested before the password is saved unless --skip-verify
is given.`,
	Example: `  useretl auth login
  useretl auth login --db-host db.internal --db-user etl`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored database password",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which database credentials are stored",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVar(&dbHost, "db-host", "", "database host")
	authCmd.PersistentFlags().IntVar(&dbPort, "db-port", 0, "database port")
	authCmd.PersistentFlags().StringVar(&dbName, "db-name", "", "database name")
	authCmd.PersistentFlags().StringVar(&dbUser, "db-user", "", "database user")
	loginCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store the password without testing the connection")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	key := auth.KeyFor(&cfg.Database)
	out := ui.Output()

	if existing, _ := manager.Retrieve(key); existing != nil {
		fmt.Fprintf(out, "A password for %s is already stored. Replace it? (y/N): ", key)
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Fprintf(out, "Password for %s: ", key)
	password, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password is required")
	}

	if !skipVerify {
		dbCfg := cfg.Database
		dbCfg.Password = password
		db, err := storage.Connect(cmd.Context(), &dbCfg)
		if err != nil {
			return err
		}
		_ = db.Close()
		ui.PrintSuccess("Connection verified")
	}

	cred := &auth.Credential{
		User:     cfg.Database.User,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Password: password,
	}
	if err := manager.Store(cred); err != nil {
		return err
	}

	ui.PrintSuccess("Password stored for " + key)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	key := auth.KeyFor(&cfg.Database)
	if err := manager.Delete(key); err != nil {
		return err
	}
	ui.PrintSuccess("Removed stored password for " + key)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	key := auth.KeyFor(&cfg.Database)
	ui.PrintInfo("Database", key)

	switch {
	case cfg.Database.Password != "":
		ui.PrintInfo("Password source", "configuration")
	default:
		cred, err := manager.Retrieve(key)
		if err != nil {
			ui.PrintWarning("No stored password", "run 'useretl auth login'")
		} else {
			ui.PrintInfo("Password source", "credential store")
			ui.PrintInfo("Password", auth.Sanitize(cred).Password)
			ui.PrintInfo("Stored", cred.LastModified.Format("2006-01-02 15:04:05"))
		}
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) > 0 {
		fmt.Fprintln(ui.Output(), "\nStored credentials:")
		for _, c := range creds {
			fmt.Fprintf(ui.Output(), "  %s\n", c.Key())
		}
	}
	return nil
}

func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(ui.Output())
		if err == nil {
			return string(password), nil
		}
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
