// Package cli is the leadscout command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

var (
	cfgFile string
	verbose bool
	// configErr is set when an explicitly requested config file could not be read.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "Leadscout - find small businesses that need marketing help",
	Long: `Leadscout searches public discussion boards, freelance marketplaces,
job boards, web search and the Apollo people API for businesses showing
marketing pain, extracts any contact details, and ranks the results.

Configuration is read from ~/.leadscout/config.yaml (or --config) and
LEADSCOUT_* environment variables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "leadscout %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.leadscout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	v := viper.GetViper()
	if err := config.SetDefaults(v); err != nil {
		configErr = err
		return
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		v.AddConfigPath(filepath.Join(home, ".leadscout"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
		}
	case cfgFile != "" || !errors.As(err, &notFound):
		configErr = fmt.Errorf("read config: %w", err)
	}
}

// loadConfig decodes the merged configuration.
func loadConfig() (config.Config, error) {
	if configErr != nil {
		return config.Config{}, configErr
	}
	return config.Load(viper.GetViper())
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".leadscout"), nil
}
