package supervisor_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"syscall"
	"testing"

	"downpour/internal/config"
	"downpour/internal/supervisor"
)

type signalCall struct {
	pid int
	sig syscall.Signal
}

type fakeEnv struct {
	spawnPID      int
	spawnErr      error
	spawnCount    int
	spawnedBinary string
	spawnedArgs   []string
	signalErr     error
	signals       []signalCall
	alive         map[int]bool
}

func (f *fakeEnv) Spawn(binary string, args []string) (int, error) {
	f.spawnCount++
	f.spawnedBinary = binary
	f.spawnedArgs = append([]string(nil), args...)
	if f.spawnErr != nil {
		return 0, f.spawnErr
	}
	return f.spawnPID, nil
}

func (f *fakeEnv) Signal(pid int, sig syscall.Signal) error {
	f.signals = append(f.signals, signalCall{pid: pid, sig: sig})
	return f.signalErr
}

func (f *fakeEnv) PidAlive(pid int) bool {
	return f.alive[pid]
}

func testConfig() *config.Config {
	return &config.Config{
		Settings: config.Settings{
			DestFolder:       "/test/downloads",
			Connections:      "8",
			MaxDownloadSpeed: "10M",
			RPCPort:          "6800",
			RPCSecret:        "secret_token",
		},
	}
}

func newSupervisor(t *testing.T, cfg *config.Config, env *fakeEnv) (*supervisor.Supervisor, string) {
	t.Helper()
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")
	sup, err := supervisor.New(cfg, pidPath, supervisor.WithEnvironment(env))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return sup, pidPath
}

func TestStartBuildsDaemonCommandAndWritesPidFile(t *testing.T) {
	env := &fakeEnv{spawnPID: 12345}
	sup, pidPath := newSupervisor(t, testConfig(), env)

	if err := sup.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if env.spawnedBinary != "aria2c" {
		t.Fatalf("unexpected binary: %q", env.spawnedBinary)
	}
	want := []string{
		"--enable-rpc",
		"--rpc-listen-port=6800",
		"--rpc-secret=secret_token",
		"--dir=/test/downloads",
		"--daemon=true",
		"--max-connection-per-server=8",
		"--max-overall-download-limit=10M",
	}
	if !reflect.DeepEqual(env.spawnedArgs, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", env.spawnedArgs, want)
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if string(data) != "12345" {
		t.Fatalf("pid file must hold exactly the decimal pid, got %q", string(data))
	}
}

func TestStartOmitsSecretFlagWhenUnset(t *testing.T) {
	cfg := testConfig()
	cfg.Settings.RPCSecret = ""
	env := &fakeEnv{spawnPID: 1}
	sup, _ := newSupervisor(t, cfg, env)

	if err := sup.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	for _, arg := range env.spawnedArgs {
		if arg == "--rpc-secret=" {
			t.Fatalf("empty secret must not produce a flag: %v", env.spawnedArgs)
		}
	}
}

func TestStartCustomBinary(t *testing.T) {
	env := &fakeEnv{spawnPID: 1}
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")
	sup, err := supervisor.New(testConfig(), pidPath,
		supervisor.WithEnvironment(env),
		supervisor.WithBinary("/opt/aria2/bin/aria2c"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if env.spawnedBinary != "/opt/aria2/bin/aria2c" {
		t.Fatalf("unexpected binary: %q", env.spawnedBinary)
	}
}

func TestStartSpawnFailure(t *testing.T) {
	env := &fakeEnv{spawnErr: errors.New("executable file not found")}
	sup, pidPath := newSupervisor(t, testConfig(), env)

	err := sup.Start()
	var spawnErr *supervisor.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *SpawnError, got %v", err)
	}
	if spawnErr.Binary != "aria2c" {
		t.Fatalf("unexpected binary in error: %q", spawnErr.Binary)
	}
	if _, statErr := os.Stat(pidPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("pid file must not be written when spawn fails")
	}
}

func TestStartPidFileWriteFailureAfterSpawn(t *testing.T) {
	env := &fakeEnv{spawnPID: 12345}
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")
	// A directory at the pid path makes the rename fail after the daemon
	// has been spawned.
	if err := os.Mkdir(pidPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sup, err := supervisor.New(testConfig(), pidPath, supervisor.WithEnvironment(env))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	err = sup.Start()
	if err == nil {
		t.Fatal("expected pid file write error")
	}
	var spawnErr *supervisor.SpawnError
	if errors.As(err, &spawnErr) {
		t.Fatalf("pid write failure must not be a SpawnError: %v", err)
	}
	if env.spawnCount != 1 {
		t.Fatalf("daemon should have been spawned exactly once, got %d", env.spawnCount)
	}
}

func TestStartRequiresConfiguration(t *testing.T) {
	sup, _ := newSupervisor(t, nil, &fakeEnv{})
	if err := sup.Start(); err == nil {
		t.Fatal("expected error when starting without configuration")
	}
}

func TestStartOverwritesExistingPidFile(t *testing.T) {
	env := &fakeEnv{spawnPID: 222}
	sup, pidPath := newSupervisor(t, testConfig(), env)
	if err := os.WriteFile(pidPath, []byte("111"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if string(data) != "222" {
		t.Fatalf("expected pid file to be overwritten, got %q", string(data))
	}
}

func TestStopSignalsAndRemovesPidFile(t *testing.T) {
	env := &fakeEnv{}
	sup, pidPath := newSupervisor(t, nil, env)
	if err := os.WriteFile(pidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if len(env.signals) != 1 || env.signals[0].pid != 12345 || env.signals[0].sig != syscall.SIGTERM {
		t.Fatalf("expected SIGTERM to pid 12345, got %+v", env.signals)
	}
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("pid file should be removed after stop")
	}
}

func TestStopMissingPidFileIsNoop(t *testing.T) {
	env := &fakeEnv{}
	sup, _ := newSupervisor(t, nil, env)

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop on absent pid file must succeed, got %v", err)
	}
	if len(env.signals) != 0 {
		t.Fatalf("no signal should be sent, got %+v", env.signals)
	}
}

func TestStopMissingParentDirectoryIsNoop(t *testing.T) {
	env := &fakeEnv{}
	pidPath := filepath.Join(t.TempDir(), "missing", "daemon.pid")
	sup, err := supervisor.New(nil, pidPath, supervisor.WithEnvironment(env))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop with an absent pid directory must succeed, got %v", err)
	}
	if len(env.signals) != 0 {
		t.Fatalf("no signal should be sent, got %+v", env.signals)
	}
	if _, err := os.Stat(filepath.Dir(pidPath)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("Stop must not create the pid directory")
	}
}

func TestStopRemovesLockFile(t *testing.T) {
	env := &fakeEnv{}
	sup, pidPath := newSupervisor(t, nil, env)
	if err := os.WriteFile(pidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if _, err := os.Stat(pidPath + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("lock file should be removed after stop")
	}
}

func TestStopToleratesDeadProcess(t *testing.T) {
	env := &fakeEnv{signalErr: syscall.ESRCH}
	sup, pidPath := newSupervisor(t, nil, env)
	if err := os.WriteFile(pidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop must tolerate a dead process, got %v", err)
	}
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("pid file should be removed even when the process is gone")
	}
}

func TestStatusStoppedWhenPidFileAbsent(t *testing.T) {
	sup, _ := newSupervisor(t, nil, &fakeEnv{})

	status, err := sup.Status()
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.State != supervisor.StateStopped || status.PID != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.State.String() != "Stopped" {
		t.Fatalf("unexpected label: %q", status.State.String())
	}
}

func TestStatusRunning(t *testing.T) {
	env := &fakeEnv{alive: map[int]bool{12345: true}}
	sup, pidPath := newSupervisor(t, nil, env)
	if err := os.WriteFile(pidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	status, err := sup.Status()
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.State != supervisor.StateRunning || status.PID != 12345 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.State.String() != "Running" {
		t.Fatalf("unexpected label: %q", status.State.String())
	}
}

func TestStatusStalePid(t *testing.T) {
	env := &fakeEnv{alive: map[int]bool{}}
	sup, pidPath := newSupervisor(t, nil, env)
	if err := os.WriteFile(pidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	status, err := sup.Status()
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.State != supervisor.StateStale {
		t.Fatalf("unexpected state: %v", status.State)
	}
	if status.PID != 0 {
		t.Fatalf("stale status must withhold the pid, got %d", status.PID)
	}
	if status.State.String() != "Stopped (Stale PID)" {
		t.Fatalf("unexpected label: %q", status.State.String())
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("Status must not clean up a stale pid file: %v", err)
	}
}

func TestStatusRejectsGarbagePidFile(t *testing.T) {
	sup, pidPath := newSupervisor(t, nil, &fakeEnv{})
	if err := os.WriteFile(pidPath, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	if _, err := sup.Status(); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
}
