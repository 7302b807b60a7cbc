// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/internal/config"
	"github.com/xkilldash9x/actuate/internal/observability"
)

var (
	cfgFile string
	appCfg  *config.Config
)

// rootCmd is the base command; all subcommands hang off it.
var rootCmd = &cobra.Command{
	Use:     "actuate",
	Short:   "Actuate drives real browsers through actionability-gated automation.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			// A fallback logger so the failure itself is visible.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "actuate"})
			return err
		}
		appCfg = cfg

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting actuate.", zap.String("version", Version))
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/actuate/config.yaml)")
	rootCmd.PersistentFlags().Bool("headless", true, "run the browser headless")
	rootCmd.PersistentFlags().String("remote-url", "", "attach to a running browser's DevTools endpoint instead of launching")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	_ = viper.BindPFlag("browser.headless", rootCmd.PersistentFlags().Lookup("headless"))
	_ = viper.BindPFlag("browser.remote_url", rootCmd.PersistentFlags().Lookup("remote-url"))
}

// initializeConfig wires defaults, the config file, and ACTUATE_* environment
// variables into viper.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if dir, err := config.DefaultConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Clean(dir))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ACTUATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry it.
	}
	return nil
}
