// Package main hosts the downpour CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// supervisor operations against the external download daemon: start, stop,
// status, restart, and configuration scaffolding. It centralizes
// configuration resolution, pid file path policy, and structured logging
// setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: lifecycle behavior belongs in internal/supervisor
// and configuration rules in internal/config; surface them here through
// dedicated commands or flags.
package main
