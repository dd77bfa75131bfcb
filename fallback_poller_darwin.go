//go:build darwin

package deferred

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller implements platformPoller on Darwin with kqueue/kevent.
type kqueuePoller struct {
	kq       int
	wakeR    int
	wakeW    int
	eventBuf [256]unix.Kevent_t
}

func newPlatformPoller() platformPoller {
	return &kqueuePoller{kq: -1, wakeR: -1, wakeW: -1}
}

func (p *kqueuePoller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	r, w, err := createWakeFD()
	if err != nil {
		_ = unix.Close(p.kq)
		return err
	}
	p.wakeR, p.wakeW = r, w
	_, err = unix.Kevent(p.kq, []unix.Kevent_t{{
		Ident:  uint64(p.wakeR),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}}, nil, nil)
	return err
}

func (p *kqueuePoller) close() error {
	closeWakeFD(p.wakeR, p.wakeW)
	return unix.Close(p.kq)
}

func (p *kqueuePoller) changelist(fd int, readable, writable bool, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if readable {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if writable {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func (p *kqueuePoller) add(fd int, readable, writable bool) error {
	cl := p.changelist(fd, readable, writable, unix.EV_ADD|unix.EV_ENABLE)
	if len(cl) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, cl, nil, nil)
	return err
}

func (p *kqueuePoller) modify(fd int, readable, writable bool) error {
	addCL := p.changelist(fd, readable, writable, unix.EV_ADD|unix.EV_ENABLE)
	delCL := p.changelist(fd, !readable, !writable, unix.EV_DELETE)
	if len(delCL) > 0 {
		_, _ = unix.Kevent(p.kq, delCL, nil, nil)
	}
	if len(addCL) > 0 {
		_, err := unix.Kevent(p.kq, addCL, nil, nil)
		return err
	}
	return nil
}

func (p *kqueuePoller) remove(fd int) error {
	cl := p.changelist(fd, true, true, unix.EV_DELETE)
	_, err := unix.Kevent(p.kq, cl, nil, nil)
	return err
}

func (p *kqueuePoller) wait(timeout time.Duration, buf []readyFD) ([]readyFD, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		ts = &unix.Timespec{Sec: int64(timeout / time.Second), Nsec: int64(timeout % time.Second)}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return buf, nil
		}
		return buf, err
	}
	for i := 0; i < n; i++ {
		kev := p.eventBuf[i]
		fd := int(kev.Ident)
		if fd == p.wakeR {
			drainWakeFD(p.wakeR)
			continue
		}
		bad := kev.Flags&unix.EV_ERROR != 0
		rd := readyFD{fd: fd, bad: bad}
		switch kev.Filter {
		case unix.EVFILT_READ:
			rd.readable = true
		case unix.EVFILT_WRITE:
			rd.writable = true
		}
		buf = append(buf, rd)
	}
	return buf, nil
}

func (p *kqueuePoller) wake() error {
	return writeWakeFD(p.wakeW)
}
