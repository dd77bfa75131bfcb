//go:build linux

package deferred

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller implements platformPoller on Linux with epoll_wait/epoll_ctl.
// It reports readiness back to ReactorFallback rather than dispatching
// callbacks itself; ReactorFallback owns the ordered callback lists.
type epollPoller struct {
	epfd     int
	wakeR    int
	wakeW    int
	eventBuf [256]unix.EpollEvent
}

func newPlatformPoller() platformPoller {
	return &epollPoller{epfd: -1, wakeR: -1, wakeW: -1}
}

func (p *epollPoller) init() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = fd
	r, w, err := createWakeFD()
	if err != nil {
		_ = unix.Close(p.epfd)
		return err
	}
	p.wakeR, p.wakeW = r, w
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, p.wakeR, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(p.wakeR),
	})
}

func (p *epollPoller) close() error {
	closeWakeFD(p.wakeR, p.wakeW)
	return unix.Close(p.epfd)
}

func epollFlags(readable, writable bool) uint32 {
	var ev uint32
	if readable {
		ev |= unix.EPOLLIN
	}
	if writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) add(fd int, readable, writable bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: epollFlags(readable, writable),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) modify(fd int, readable, writable bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: epollFlags(readable, writable),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(timeout time.Duration, buf []readyFD) ([]readyFD, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return buf, nil
		}
		return buf, err
	}
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		fd := int(ev.Fd)
		if fd == p.wakeR {
			drainWakeFD(p.wakeR)
			continue
		}
		bad := ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
		buf = append(buf, readyFD{
			fd:       fd,
			readable: ev.Events&unix.EPOLLIN != 0 || bad,
			writable: ev.Events&unix.EPOLLOUT != 0 || bad,
			bad:      bad,
		})
	}
	return buf, nil
}

func (p *epollPoller) wake() error {
	return writeWakeFD(p.wakeW)
}
