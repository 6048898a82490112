package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfmesh/hes/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample hes configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/hes/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  hes init

  # Initialize with custom path
  hes init --config /etc/hes/config.yaml

  # Force overwrite existing config
  hes init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Run migrations: hes migrate")
	fmt.Println("  3. Start the server with: hes start")
	fmt.Printf("  4. Or specify custom config: hes start --config %s\n", configPath)
	fmt.Println("\nAdmin bootstrap credential:")
	fmt.Printf("  A random MQTT broker password was generated: %s\n", config.GeneratedAdminPassword)
	fmt.Println("  Its bcrypt hash was written to admin.mqtt_password_hash. Save the")
	fmt.Println("  plaintext password now; it is not stored and will not be shown again.")

	return nil
}
