package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// daemonState is written next to the running daemon so that `status` and
// `stop` can find it. The file exists exactly while the daemon runs.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
	Household string    `json:"household,omitempty"`
	LogFile   string    `json:"log_file,omitempty"`
}

var errDaemonNotRunning = errors.New("daemon is not running")

// readDaemonState returns errDaemonNotRunning when there is no state file
// or its process has exited. A stale file is removed.
func readDaemonState(path string) (daemonState, error) {
	var st daemonState
	data, err := os.ReadFile(path) //nolint:gosec // path is configured by the local user
	if errors.Is(err, os.ErrNotExist) {
		return st, errDaemonNotRunning
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil || st.PID <= 0 {
		return st, fmt.Errorf("corrupt daemon state %s", path)
	}
	if !processAlive(st.PID) {
		_ = os.Remove(path)
		return st, errDaemonNotRunning
	}
	return st, nil
}

func writeDaemonState(path string, st daemonState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// claimDaemonState fails if another daemon owns path.
func claimDaemonState(path string) error {
	st, err := readDaemonState(path)
	switch {
	case errors.Is(err, errDaemonNotRunning):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("daemon already running (pid %d, %s)", st.PID, st.Addr)
	}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// spawnDetached re-executes the current binary with --detach replaced by
// the hidden --child flag, output appended to logFile.
func spawnDetached(logFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		return 0, fmt.Errorf("create daemon log directory: %w", err)
	}
	logf, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // user-configured path
	if err != nil {
		return 0, fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-exec of this binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("start detached daemon: %w", err)
	}
	return child.Process.Pid, child.Process.Release()
}

func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--child")
}

// stopProcess sends SIGTERM and waits up to timeout for the process to go.
func stopProcess(pid int, timeout time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(150 * time.Millisecond) {
		if !processAlive(pid) {
			return nil
		}
	}
	return fmt.Errorf("daemon (pid %d) did not exit within %s", pid, timeout)
}
