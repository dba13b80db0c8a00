package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/prompt"
	"github.com/marmos91/talko/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample talko configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/talko/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  talko init

  # Initialize with custom path
  talko init --config /etc/talko/config.yaml

  # Force overwrite existing config
  talko init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Ask before clobbering an existing file unless --force was given.
	force := initForce
	if !force {
		existing := configFile
		if existing == "" {
			existing = config.GetDefaultConfigPath()
		}
		if _, err := os.Stat(existing); err == nil {
			overwrite, err := prompt.Confirm(fmt.Sprintf("Overwrite existing config at %s?", existing), false)
			if err != nil {
				return err
			}
			if !overwrite {
				fmt.Println("Aborted.")
				return nil
			}
			force = true
		}
	}

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, force)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(force)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the servers with: talko start")
	fmt.Printf("  3. Or specify custom config: talko start --config %s\n", configPath)

	return nil
}
