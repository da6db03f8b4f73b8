//go:build windows

package persist

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/windows"
)

func TestInUse_Windows(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "busy marker", err: errBusy, want: true},
		{name: "sharing violation", err: &os.LinkError{Op: "rename", Old: "a", New: "b", Err: windows.ERROR_SHARING_VIOLATION}, want: true},
		{name: "lock violation", err: &os.PathError{Op: "open", Path: "x", Err: windows.ERROR_LOCK_VIOLATION}, want: true},
		{name: "not exist", err: os.ErrNotExist, want: false},
		{name: "access denied", err: windows.ERROR_ACCESS_DENIED, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inUse(tt.err); got != tt.want {
				t.Errorf("inUse(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrite_InUseExhaustsTimeout_Windows(t *testing.T) {
	f, err := New[map[string]any](Config{
		Directory:    t.TempDir(),
		Name:         "contended-windows",
		RetryTimeout: Duration(100 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lock, err := os.OpenFile(f.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer lock.Close()
	if err := tryLock(lock, true); err != nil {
		t.Fatalf("tryLock() error = %v", err)
	}
	defer unlock(lock)

	err = f.Write(context.Background(), map[string]map[string]any{})
	if !errors.Is(err, ErrFileInUse) {
		t.Errorf("Write() error = %v, want %v", err, ErrFileInUse)
	}
}
