package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"downpour/internal/supervisor"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the download daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg.EnsureDirectories()

			pidPath, err := ctx.pidPath()
			if err != nil {
				return err
			}
			sup, err := newSupervisor(cfg, pidPath, supervisor.WithLogger(ctx.logger()))
			if err != nil {
				return err
			}
			if err := sup.Start(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the download daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			pidPath, err := ctx.pidPath()
			if err != nil {
				return err
			}
			sup, err := newSupervisor(ctx.configOrNil(), pidPath, supervisor.WithLogger(ctx.logger()))
			if err != nil {
				return err
			}

			status, err := sup.Status()
			if err != nil {
				return err
			}
			if err := sup.Stop(); err != nil {
				return err
			}
			switch status.State {
			case supervisor.StateRunning:
				fmt.Fprintf(stdout, "Stopping daemon (pid %d)\n", status.PID)
			case supervisor.StateStale:
				fmt.Fprintln(stdout, "Daemon not running; removed stale pid file")
			default:
				fmt.Fprintln(stdout, "Daemon is not running")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report daemon liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			pidPath, err := ctx.pidPath()
			if err != nil {
				return err
			}
			sup, err := newSupervisor(ctx.configOrNil(), pidPath)
			if err != nil {
				return err
			}
			status, err := sup.Status()
			if err != nil {
				return err
			}

			kind := statusWarn
			detail := status.State.String()
			if status.State == supervisor.StateRunning {
				kind = statusOK
				detail = fmt.Sprintf("%s (pid %d)", status.State, status.PID)
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("State", kind, detail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Pid File", statusInfo, pidPath, colorize))

			cfg := ctx.configOrNil()
			if cfg == nil {
				fmt.Fprintln(stdout, renderStatusLine("Config", statusWarn, "not found", colorize))
				return nil
			}
			fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, cfg.Path, colorize))
			fmt.Fprintln(stdout, renderStatusLine("RPC Port", statusInfo, cfg.Settings.RPCPort, colorize))

			if len(cfg.Schedules) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Schedules", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := make([][]string, 0, len(cfg.Schedules))
				for _, schedule := range cfg.Schedules {
					rows = append(rows, []string{schedule.Name, schedule.Value})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Name", "Value"}, rows, nil))
			}
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the download daemon, then start it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg.EnsureDirectories()

			pidPath, err := ctx.pidPath()
			if err != nil {
				return err
			}
			sup, err := newSupervisor(cfg, pidPath, supervisor.WithLogger(ctx.logger()))
			if err != nil {
				return err
			}
			if err := sup.Stop(); err != nil {
				return err
			}
			if err := sup.Start(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd, restartCmd}
}
