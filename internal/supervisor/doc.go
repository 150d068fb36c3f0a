// Package supervisor manages the external download daemon's lifecycle.
//
// It derives the daemon's command line from validated configuration, launches
// the binary detached so it outlives the supervisor, records the child pid in
// a plain-text file, and later reads that file to stop the daemon or report
// liveness. Absence of the pid file means stopped; a pid file naming a dead
// process is reported as stale without being cleaned up.
//
// Process-table access goes through the ProcessEnvironment interface so the
// lifecycle logic is testable without spawning or signaling real processes.
package supervisor
