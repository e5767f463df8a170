package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/genricoloni/reverie/internal/config"
	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/provider"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const _probeTimeout = 30 * time.Second

// writeOutput renders v as indented JSON or YAML
func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", "json", "output format (json or yaml)")
}

func formatFlag(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("format")
	return format
}

// populate builds the shared graph without lifecycle hooks and fills targets
func populate(extra fx.Option, targets ...any) error {
	app := fx.New(
		CoreOptions,
		extra,
		fx.NopLogger,
		fx.Populate(targets...),
	)
	return app.Err()
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <repository>",
		Short: "Fetch a few images from a repository and check the first one loads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				repo *provider.Repository
				pre  domain.Preloader
			)
			if err := populate(fx.Options(), &repo, &pre); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), _probeTimeout)
			defer cancel()

			result := provider.TestRepository(ctx, repo, pre, args[0])
			if err := writeOutput(cmd.OutOrStdout(), formatFlag(cmd), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("repository check failed: %s", result.Message)
			}
			return nil
		},
	}
	addFormatFlag(cmd)
	return cmd
}

// repositoryReport is printed by the info command
type repositoryReport struct {
	Descriptor string                    `json:"descriptor" yaml:"descriptor"`
	Info       provider.RepositoryInfo   `json:"info" yaml:"info"`
	Validation provider.ValidationResult `json:"validation" yaml:"validation"`
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <repository>",
		Short: "Describe the provider a repository descriptor resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), formatFlag(cmd), repositoryReport{
				Descriptor: args[0],
				Info:       provider.Describe(args[0]),
				Validation: provider.Validate(args[0]),
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <repository>",
		Short: "Check a repository descriptor for common mistakes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := provider.Validate(args[0])
			if err := writeOutput(cmd.OutOrStdout(), formatFlag(cmd), result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("invalid repository %q", args[0])
			}
			return nil
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change the persisted user settings",
	}

	loadStore := func() (domain.SettingsStore, error) {
		var store domain.SettingsStore
		err := populate(fx.Provide(newSettingsStore), &store)
		return store, err
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			s, err := store.Load()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), formatFlag(cmd), s)
		},
	}
	addFormatFlag(show)

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one setting; the value is parsed as JSON, falling back to a plain string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			s, err := store.Save(map[string]any{args[0]: parseValue(args[1])})
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), formatFlag(cmd), s)
		},
	}
	addFormatFlag(set)

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Remove stored settings and revert to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			return store.Reset()
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

// parseValue decodes raw as JSON so numbers, booleans and lists keep their type
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

var _secretNames = map[string]string{
	"github":  "github",
	"weather": "openweathermap",
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials stored in the OS keyring",
	}

	set := &cobra.Command{
		Use:       "set <github|weather>",
		Short:     "Read a secret from stdin and store it in the keyring",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"github", "weather"},
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok := _secretNames[args[0]]
			if !ok {
				return fmt.Errorf("unknown secret %q", args[0])
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			value := strings.TrimSpace(line)
			if value == "" {
				return fmt.Errorf("empty secret")
			}

			if err := config.StoreSecret(user, value); err != nil {
				return fmt.Errorf("store secret: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s secret\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(set)
	return cmd
}
