//go:build linux

package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const maxEventsPerWait = 1024

type epoll struct {
	fd     int
	events []unix.EpollEvent
	fired  []Event
}

func newPoller() (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epoll{
		fd:     fd,
		events: make([]unix.EpollEvent, maxEventsPerWait),
		fired:  make([]Event, 0, maxEventsPerWait),
	}, nil
}

func toEpoll(mask Mask) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (e *epoll) ctl(op, fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpoll(mask), Fd: int32(fd)}
	return unix.EpollCtl(e.fd, op, fd, &ev)
}

func (e *epoll) Add(fd int, mask Mask) error {
	return e.ctl(unix.EPOLL_CTL_ADD, fd, mask)
}

func (e *epoll) Mod(fd int, mask Mask) error {
	return e.ctl(unix.EPOLL_CTL_MOD, fd, mask)
}

func (e *epoll) Del(fd int) error {
	return unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (e *epoll) Wait(timeout time.Duration) ([]Event, error) {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(e.fd, e.events, msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}

	e.fired = e.fired[:0]
	for i := 0; i < n; i++ {
		raw := e.events[i]
		var mask Mask
		if raw.Events&unix.EPOLLIN != 0 {
			mask |= Readable
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			mask |= Writable
		}
		// 出错或挂断时读写回调都触发，由回调自己拿到具体错误
		if raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			mask |= Readable | Writable
		}
		e.fired = append(e.fired, Event{Fd: int(raw.Fd), Mask: mask})
	}
	return e.fired, nil
}

func (e *epoll) Close() error {
	return unix.Close(e.fd)
}
