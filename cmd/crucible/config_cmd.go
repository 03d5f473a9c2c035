package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/config"
)

var configFlags struct {
	show bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Work with configuration files",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration given by --config, apply CRUCIBLE_* environment
overrides and defaults, and report every invalid field. With --show the
effective configuration is printed as YAML.`,
	Example: `  crucible config validate --config crucible.yaml
  CRUCIBLE_POLICY_MAX_CONCURRENT=10 crucible config validate --show`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configValidateCmd.Flags().BoolVar(&configFlags.show, "show", false, "print the effective configuration")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	out := cmd.OutOrStdout()
	if configFlags.show {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	source := cfgFile
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(out, "✓ Configuration is valid (%s)\n", source)
	return nil
}
