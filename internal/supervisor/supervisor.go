package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"downpour/internal/config"
	"downpour/internal/logging"
)

// defaultBinary is the download daemon launched when no override is given.
const defaultBinary = "aria2c"

// termSignal is what Stop delivers: signal 15, SIGTERM.
const termSignal = syscall.SIGTERM

// SpawnError indicates the daemon binary could not be launched.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("launch %s: %v", e.Binary, e.Err) }

func (e *SpawnError) Unwrap() error { return e.Err }

// State classifies daemon liveness as derived from the pid file.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateStale
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStale:
		return "Stopped (Stale PID)"
	default:
		return "Stopped"
	}
}

// Status reports daemon liveness. PID is set only when State is StateRunning;
// a stale pid no longer identifies a live process and is withheld.
type Status struct {
	State State
	PID   int
}

// Supervisor drives the daemon lifecycle for one (configuration, pid file)
// pair. A nil configuration is allowed for Stop and Status, which only need
// the pid file.
type Supervisor struct {
	cfg     *config.Config
	pidPath string
	binary  string
	env     ProcessEnvironment
	logger  *slog.Logger
	lock    *flock.Flock
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBinary overrides the daemon binary name or path.
func WithBinary(binary string) Option {
	return func(s *Supervisor) {
		if strings.TrimSpace(binary) != "" {
			s.binary = binary
		}
	}
}

// WithEnvironment substitutes the process environment, typically for tests.
func WithEnvironment(env ProcessEnvironment) Option {
	return func(s *Supervisor) {
		if env != nil {
			s.env = env
		}
	}
}

// WithLogger attaches a logger for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a supervisor bound to the given pid file path.
func New(cfg *config.Config, pidPath string, opts ...Option) (*Supervisor, error) {
	if strings.TrimSpace(pidPath) == "" {
		return nil, errors.New("supervisor requires a pid file path")
	}
	s := &Supervisor{
		cfg:     cfg,
		pidPath: pidPath,
		binary:  defaultBinary,
		env:     OSEnvironment{},
		logger:  logging.NewNop(),
		lock:    flock.New(pidPath + ".lock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the daemon detached and records its pid. It does not consult
// Status first: starting while a daemon is already running spawns a second
// process and overwrites the pid file, leaving the old one unmanaged.
func (s *Supervisor) Start() error {
	if s.cfg == nil {
		return errors.New("start requires a configuration")
	}
	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	args := buildArgs(s.cfg.Settings)
	pid, err := s.env.Spawn(s.binary, args)
	if err != nil {
		return &SpawnError{Binary: s.binary, Err: err}
	}
	s.logger.Info("daemon launched",
		"binary", s.binary,
		"pid", pid,
		"rpc_port", s.cfg.Settings.RPCPort,
		"dest_folder", s.cfg.Settings.DestFolder)

	if err := writePidFile(s.pidPath, pid); err != nil {
		// The daemon is already running at this point and now unsupervised.
		s.logger.Warn("daemon running but pid file write failed", "pid", pid, "error", err)
		return fmt.Errorf("write pid file %q: %w", s.pidPath, err)
	}
	return nil
}

// Stop reads the recorded pid, sends SIGTERM, and removes the pid file. A
// missing pid file is a no-op success. Signaling a dead process is tolerated;
// the file is removed regardless. Stop does not wait for the process to exit.
func (s *Supervisor) Stop() error {
	// Taking the lock creates its file next to the pid file, which fails when
	// the parent directory is absent. That state means no daemon was ever
	// started here, so resolve the no-op before locking.
	if _, err := os.Stat(s.pidPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	pid, err := readPidFile(s.pidPath)
	if errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(s.lock.Path())
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.env.Signal(pid, termSignal); err != nil {
		s.logger.Warn("terminate signal not delivered", "pid", pid, "error", err)
	} else {
		s.logger.Info("daemon signaled", "pid", pid, "signal", int(termSignal))
	}

	if err := os.Remove(s.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", s.pidPath, err)
	}
	// The lock only coordinates invocations while a pid file exists. With the
	// daemon stopped it is leftover state, not a resource.
	_ = os.Remove(s.lock.Path())
	return nil
}

// Status reports daemon liveness. It never mutates the pid file, so a stale
// record stays in place until the next Stop or Start.
func (s *Supervisor) Status() (Status, error) {
	pid, err := readPidFile(s.pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return Status{State: StateStopped}, nil
	}
	if err != nil {
		return Status{}, err
	}
	if s.env.PidAlive(pid) {
		return Status{State: StateRunning, PID: pid}, nil
	}
	return Status{State: StateStale}, nil
}

func (s *Supervisor) acquireLock() (func(), error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pid file lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another supervisor operation is in progress")
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// buildArgs derives the daemon argument vector. Flag names and key=value
// joining are fixed by the daemon binary's flag parser; changing them silently
// breaks the RPC interface.
func buildArgs(s config.Settings) []string {
	args := []string{
		"--enable-rpc",
		"--rpc-listen-port=" + s.RPCPort,
	}
	if s.RPCSecret != "" {
		args = append(args, "--rpc-secret="+s.RPCSecret)
	}
	args = append(args,
		"--dir="+s.DestFolder,
		"--daemon=true",
	)
	if s.Connections != "" {
		args = append(args, "--max-connection-per-server="+s.Connections)
	}
	if s.MaxDownloadSpeed != "" {
		args = append(args, "--max-overall-download-limit="+s.MaxDownloadSpeed)
	}
	return args
}
