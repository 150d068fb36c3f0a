package supervisor

import (
	"fmt"
	"os/exec"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// ProcessEnvironment abstracts process-table access so supervisor logic can be
// exercised without touching the host OS.
type ProcessEnvironment interface {
	// Spawn launches binary with args as a detached process and returns its pid.
	Spawn(binary string, args []string) (int, error)
	// Signal delivers sig to the process with the given pid.
	Signal(pid int, sig syscall.Signal) error
	// PidAlive reports whether a process with the given pid currently exists.
	PidAlive(pid int) bool
}

// OSEnvironment is the host-backed ProcessEnvironment.
type OSEnvironment struct{}

// Spawn starts the binary and releases the process handle so the child is not
// tied to the supervisor's lifetime.
func (OSEnvironment) Spawn(binary string, args []string) (int, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release daemon process: %w", err)
	}
	return pid, nil
}

func (OSEnvironment) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

func (OSEnvironment) PidAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}
