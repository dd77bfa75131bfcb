//go:build linux

package deferred

import "golang.org/x/sys/unix"

// createWakeFD creates the eventfd used to interrupt a blocking epoll_wait
// from another goroutine (a registration racing Iter(true)). Linux eventfd
// serves as both the read and write end.
func createWakeFD() (read, write int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func closeWakeFD(read, write int) {
	if read >= 0 {
		_ = unix.Close(read)
	}
}

func drainWakeFD(read int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(read, buf[:]); err != nil {
			return
		}
	}
}

func writeWakeFD(write int) error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(write, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}
