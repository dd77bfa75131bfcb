//go:build windows

package deferred

import "golang.org/x/sys/windows"

// createWakeSocketPair creates a connected loopback TCP socket pair used to
// interrupt a blocking WSAPoll from another goroutine, since Windows has no
// self-pipe/eventfd equivalent for arbitrary sockets.
func createWakeSocketPair() (read, write windows.Handle, err error) {
	l, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return 0, 0, err
	}
	defer windows.Closesocket(l)

	addr := &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Bind(l, addr); err != nil {
		return 0, 0, err
	}
	if err := windows.Listen(l, 1); err != nil {
		return 0, 0, err
	}
	sa, err := windows.Getsockname(l)
	if err != nil {
		return 0, 0, err
	}
	laddr := sa.(*windows.SockaddrInet4)

	wfd, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return 0, 0, err
	}
	connAddr := &windows.SockaddrInet4{Port: laddr.Port, Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Connect(wfd, connAddr); err != nil {
		windows.Closesocket(wfd)
		return 0, 0, err
	}
	rfd, _, err := windows.Accept(l)
	if err != nil {
		windows.Closesocket(wfd)
		return 0, 0, err
	}
	return rfd, wfd, nil
}

func closeWakeSockets(read, write windows.Handle) {
	_ = windows.Closesocket(read)
	_ = windows.Closesocket(write)
}

func drainWakeSocket(read windows.Handle) {
	var buf [64]byte
	for {
		n, err := windows.Recv(read, buf[:], 0)
		if err != nil || n <= 0 {
			return
		}
	}
}

func writeWakeSocket(write windows.Handle) error {
	_, err := windows.Send(write, []byte{1}, 0)
	return err
}
