package x11

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

// A ShmImage may outlive its display; Put and Close on one whose display
// was already closed must error and detach cleanly, not panic.
func TestShmImagePutAndCloseAfterDisplayClose(t *testing.T) {
	shmID, err := unix.SysvShmGet(unix.IPC_PRIVATE, 4096, unix.IPC_CREAT|0o600)
	if err != nil {
		t.Skipf("sysv shm unavailable: %v", err)
	}
	data, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)
		t.Fatalf("failed to attach shm segment: %v", err)
	}
	unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)

	img := &ShmImage{
		display: &Display{},
		data:    data,
		width:   2,
		height:  2,
		stride:  8,
	}

	if err := img.Put(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}
