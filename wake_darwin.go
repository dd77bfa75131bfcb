//go:build darwin

package deferred

import "golang.org/x/sys/unix"

// createWakeFD creates a non-blocking self-pipe used to interrupt a
// blocking kevent wait from another goroutine (Darwin has no eventfd
// equivalent).
func createWakeFD() (read, write int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func closeWakeFD(read, write int) {
	if read >= 0 {
		_ = unix.Close(read)
	}
	if write >= 0 && write != read {
		_ = unix.Close(write)
	}
}

func drainWakeFD(read int) {
	var buf [64]byte
	for {
		if _, err := unix.Read(read, buf[:]); err != nil {
			return
		}
	}
}

func writeWakeFD(write int) error {
	_, err := unix.Write(write, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}
