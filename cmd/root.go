// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/observability"
)

// NewRootCommand builds a fresh command tree. Each invocation gets its own
// tree so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile   string
		ephemeral bool
	)
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:     "birdclip",
		Short:   "birdclip pulls downloadable video renditions out of a logged-in Twitter session.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}
			if err := v.Unmarshal(cfg); err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "birdclip",
				})
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "birdclip",
				})
				return err
			}

			if ephemeral {
				cfg.Store.Driver = config.StoreDriverMemory
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting birdclip.", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep no state on disk (in-memory store)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newServeCommand(cfg))
	rootCmd.AddCommand(newGrabCommand(cfg))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// Execute runs the command tree under the given context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command execution failed.", zap.Error(err))
		return err
	}
	return nil
}

// initializeConfig layers defaults, the config file, and BIRDCLIP_*
// environment variables, in ascending precedence.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BIRDCLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment carry the run.
	}
	return nil
}
