//go:build windows

package deferred

import (
	"time"

	"golang.org/x/sys/windows"
)

// wsaPoller implements platformPoller on Windows using WSAPoll, the
// closest readiness-multiplexing syscall to epoll/kqueue available without
// building a full IOCP completion model. Registrations are sockets, the
// common case for the channel layer this core supports.
type wsaPoller struct {
	fds         map[int]windows.Handle
	wakeR       windows.Handle
	wakeW       windows.Handle
	wakeRFD     int
}

func newPlatformPoller() platformPoller {
	return &wsaPoller{fds: make(map[int]windows.Handle)}
}

func (p *wsaPoller) init() error {
	r, w, err := createWakeSocketPair()
	if err != nil {
		return err
	}
	p.wakeR, p.wakeW = r, w
	p.wakeRFD = int(r)
	return nil
}

func (p *wsaPoller) close() error {
	closeWakeSockets(p.wakeR, p.wakeW)
	return nil
}

func (p *wsaPoller) add(fd int, readable, writable bool) error {
	p.fds[fd] = windows.Handle(fd)
	return nil
}

func (p *wsaPoller) modify(fd int, readable, writable bool) error {
	return nil
}

func (p *wsaPoller) remove(fd int) error {
	delete(p.fds, fd)
	return nil
}

func (p *wsaPoller) wait(timeout time.Duration, buf []readyFD) ([]readyFD, error) {
	fds := make([]windows.WSAPollFD, 0, len(p.fds)+1)
	fds = append(fds, windows.WSAPollFD{Fd: p.wakeR, Events: windows.POLLRDNORM})
	order := make([]int, 0, len(p.fds))
	for fd, h := range p.fds {
		fds = append(fds, windows.WSAPollFD{Fd: h, Events: windows.POLLRDNORM | windows.POLLWRNORM})
		order = append(order, fd)
	}
	ms := int32(-1)
	if timeout >= 0 {
		ms = int32(timeout.Milliseconds())
	}
	n, err := windows.WSAPoll(&fds[0], uint32(len(fds)), ms)
	if err != nil || n <= 0 {
		return buf, err
	}
	for i, f := range fds {
		if f.REvents == 0 {
			continue
		}
		if i == 0 {
			drainWakeSocket(p.wakeR)
			continue
		}
		bad := f.REvents&(windows.POLLHUP|windows.POLLERR) != 0
		buf = append(buf, readyFD{
			fd:       order[i-1],
			readable: f.REvents&(windows.POLLRDNORM|windows.POLLHUP) != 0 || bad,
			writable: f.REvents&windows.POLLWRNORM != 0 || bad,
			bad:      bad,
		})
	}
	return buf, nil
}

func (p *wsaPoller) wake() error {
	return writeWakeSocket(p.wakeW)
}
