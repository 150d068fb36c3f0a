package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"downpour/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit dest_folder and rpc_port before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "Configuration: %s\n\n", cfg.Path)

			secret := "(unset)"
			if cfg.Settings.RPCSecret != "" {
				secret = "(set)"
			}
			rows := [][]string{
				{"dest_folder", cfg.Settings.DestFolder},
				{"connections", cfg.Settings.Connections},
				{"max_download_speed", cfg.Settings.MaxDownloadSpeed},
				{"rpc_port", cfg.Settings.RPCPort},
				{"rpc_secret", secret},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Setting", "Value"}, rows, nil))

			if len(cfg.Schedules) > 0 {
				fmt.Fprintln(stdout)
				rows = rows[:0]
				for _, schedule := range cfg.Schedules {
					rows = append(rows, []string{schedule.Name, schedule.Value})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Schedule", "Value"}, rows, nil))
			}
			return nil
		},
	}
}
