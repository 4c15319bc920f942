package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/config"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	userService   *services.UserService
	logService    *services.LogService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hora-mail",
	Short: "Hora mail integration backend",
	Long: `Hora mail is the mailbox integration backend of the Hora platform.

This command line tool provides:
  - Key management: show and reset the API key
  - User management: create users, list users, reset user passwords

Examples:
  hora-mail key show          # show the current API key
  hora-mail key reset         # reset the API key
  hora-mail user create       # create a new user
  hora-mail user list         # list all users
  hora-mail user reset-pwd    # reset a user's password`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	userService = services.NewUserService(db)
	logService = services.NewLogService(db)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(userCmd)
}
