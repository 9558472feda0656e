package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestChildArgs(t *testing.T) {
	got := childArgs([]string{"daemon", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"daemon", "--addr", ":9000", "--child"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("childArgs = %v, want %v", got, want)
	}
}

func TestDaemonStateMissing(t *testing.T) {
	_, err := readDaemonState(filepath.Join(t.TempDir(), "none.json"))
	if !errors.Is(err, errDaemonNotRunning) {
		t.Fatalf("err = %v, want errDaemonNotRunning", err)
	}
	if err := claimDaemonState(filepath.Join(t.TempDir(), "none.json")); err != nil {
		t.Fatalf("claim on missing state: %v", err)
	}
}

func TestDaemonStateRoundTripBlocksClaim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "cashpulsed.json")
	st := daemonState{PID: os.Getpid(), Addr: "127.0.0.1:9999", StartedAt: time.Now().UTC(), DataDir: "/data"}
	if err := writeDaemonState(path, st); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := readDaemonState(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.PID != st.PID || got.Addr != st.Addr || got.DataDir != st.DataDir {
		t.Fatalf("state = %+v, want %+v", got, st)
	}
	if err := claimDaemonState(path); err == nil {
		t.Fatal("claim succeeded while our own pid holds the state")
	}
}

func TestDaemonStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readDaemonState(path); err == nil || errors.Is(err, errDaemonNotRunning) {
		t.Fatalf("err = %v, want corrupt-state error", err)
	}
}
