package cmd

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/lattice/pkg/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "config",
		Short: "Show or check engine configuration",
		Long: `Show or check the engine configuration.

Subcommands:
  show       Print the resolved configuration as YAML (default)
  check      Validate the configuration and report problems
  default    Print the built-in defaults as YAML

The configuration is read from --config when given, otherwise from
lattice.yaml in the project root. Missing keys keep their defaults.`,
		Usage: "lattice config [show|check|default]",
		Run:   runConfig,
	})
}

func runConfig(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument %q", args[1])
	}

	switch sub {
	case "show":
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printYAML(cfg)
	case "check":
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	case "default":
		return printYAML(config.Default())
	default:
		return fmt.Errorf("unknown subcommand %q (use show, check, or default)", sub)
	}
}

func printYAML(cfg *config.Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = stdout.Write(out)
	return err
}
