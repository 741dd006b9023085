package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spsync/spsync/internal/core/domain"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or update the configuration file",
	Long: `Walks through the SharePoint credentials and database settings and
writes them to the config file. Secrets are read without echo when
stdin is a terminal. Pressing enter keeps the current value.`,
	RunE: runConfigure,
}

var configureSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single configuration value",
	Long: `Sets one dotted configuration key, e.g.:

  spsync configure set sharepoint.list_name Invoices
  spsync configure set sync.batch_size 250`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigureSet,
}

func init() {
	configureCmd.AddCommand(configureSetCmd)
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	if openConfig == nil {
		return errors.New("config store not configured")
	}

	store, err := openConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("SharePoint connection")
	cfg.Credentials.SiteURL = promptValue(cmd, reader, "Site URL", cfg.Credentials.SiteURL)
	cfg.Credentials.TenantID = promptValue(cmd, reader, "Tenant ID", cfg.Credentials.TenantID)
	cfg.Credentials.ClientID = promptValue(cmd, reader, "Client ID", cfg.Credentials.ClientID)
	cfg.Credentials.ClientSecret = promptSecret(cmd, reader, "Client secret", cfg.Credentials.ClientSecret)
	cfg.ListName = promptValue(cmd, reader, "List name", cfg.ListName)

	cmd.Println("\nDestination database")
	dbType := promptValue(cmd, reader, "Type (sqlserver/sqlite)", string(cfg.Database.Type))
	cfg.Database.Type = domain.DatabaseType(strings.ToLower(dbType))
	switch cfg.Database.Type {
	case domain.DatabaseSQLServer:
		cfg.Database.Server = promptValue(cmd, reader, "Server", cfg.Database.Server)
		cfg.Database.Database = promptValue(cmd, reader, "Database", cfg.Database.Database)
		cfg.Database.Username = promptValue(cmd, reader, "Username", cfg.Database.Username)
		cfg.Database.Password = promptSecret(cmd, reader, "Password", cfg.Database.Password)
	case domain.DatabaseSQLite:
		cfg.Database.File = promptValue(cmd, reader, "Database file", cfg.Database.File)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedDatabase, dbType)
	}
	cfg.Table = promptValue(cmd, reader, "Table name", cfg.Table)

	cfg.Normalise()
	if err := cfg.Validate(); err != nil {
		cmd.PrintErrf("warning: configuration is incomplete:\n%v\n", err)
	}

	if err := store.Save(cfg); err != nil {
		return err
	}
	cmd.Printf("Configuration written to %s\n", store.Path())
	return nil
}

func runConfigureSet(cmd *cobra.Command, args []string) error {
	if openConfig == nil {
		return errors.New("config store not configured")
	}
	store, err := openConfig(configPath)
	if err != nil {
		return err
	}
	if err := store.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

// promptValue asks for a value, keeping the current one on empty input.
func promptValue(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

// promptSecret asks for a secret without echoing it. The current value
// is never printed; a placeholder shows whether one is set.
func promptSecret(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [unchanged]: ", label)
	} else {
		cmd.Printf("%s: ", label)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err == nil {
			if len(secret) == 0 {
				return current
			}
			return string(secret)
		}
	}

	// Fallback for piped input.
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}
