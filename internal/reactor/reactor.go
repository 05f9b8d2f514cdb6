// Package reactor 单线程事件循环
// 所有回调都在 Poll 内同步执行，Poll 是整个服务唯一会阻塞的地方
package reactor

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
)

var ErrUnsupported = errors.New("reactor: no poller on this platform")

// Mask 关注的事件
type Mask int

const (
	None     Mask = 0
	Readable Mask = 1 << 0
	Writable Mask = 1 << 1
)

func (m Mask) String() string {
	switch m {
	case None:
		return "none"
	case Readable:
		return "r"
	case Writable:
		return "w"
	case Readable | Writable:
		return "rw"
	default:
		return fmt.Sprintf("mask(%d)", int(m))
	}
}

// FileProc 文件事件回调，闭包直接捕获自己关心的连接
type FileProc func(fd int, mask Mask)

// Event 一个就绪的 fd
type Event struct {
	Fd   int
	Mask Mask
}

// Backend 操作系统的多路复用接口
type Backend interface {
	Add(fd int, mask Mask) error
	Mod(fd int, mask Mask) error
	Del(fd int) error
	// Wait 阻塞最多 timeout，timeout < 0 表示一直等
	Wait(timeout time.Duration) ([]Event, error)
	Close() error
}

type fileEvent struct {
	mask  Mask
	rproc FileProc
	wproc FileProc
}

type EventLoop struct {
	backend Backend
	events  map[int]*fileEvent
	logger  hclog.Logger
}

// New 使用当前平台的默认 poller
func New(log hclog.Logger) (*EventLoop, error) {
	b, err := newPoller()
	if err != nil {
		return nil, err
	}
	return NewWithBackend(b, log), nil
}

func NewWithBackend(b Backend, log hclog.Logger) *EventLoop {
	return &EventLoop{
		backend: b,
		events:  make(map[int]*fileEvent),
		logger:  logger.OrNop(log),
	}
}

// AddEvent 注册 fd 上的事件，已注册过的 fd 会合并 mask
func (l *EventLoop) AddEvent(fd int, mask Mask, proc FileProc) error {
	fe, ok := l.events[fd]
	if !ok {
		fe = &fileEvent{}
	}
	merged := fe.mask | mask

	var err error
	if fe.mask == None {
		err = l.backend.Add(fd, merged)
	} else {
		err = l.backend.Mod(fd, merged)
	}
	if err != nil {
		return fmt.Errorf("register fd %d (%s): %w", fd, merged, err)
	}

	fe.mask = merged
	if mask&Readable != 0 {
		fe.rproc = proc
	}
	if mask&Writable != 0 {
		fe.wproc = proc
	}
	l.events[fd] = fe
	return nil
}

// DeleteEvent 取消 fd 上的部分事件，全部取消后 fd 从 poller 中移除
func (l *EventLoop) DeleteEvent(fd int, mask Mask) {
	fe, ok := l.events[fd]
	if !ok {
		return
	}
	rest := fe.mask &^ mask
	if rest == fe.mask {
		return
	}

	if rest == None {
		if err := l.backend.Del(fd); err != nil {
			l.logger.Debug("unregister fd", "fd", fd, "error", err)
		}
		delete(l.events, fd)
		return
	}
	if err := l.backend.Mod(fd, rest); err != nil {
		l.logger.Debug("modify fd", "fd", fd, "mask", rest, "error", err)
	}
	fe.mask = rest
	if mask&Readable != 0 {
		fe.rproc = nil
	}
	if mask&Writable != 0 {
		fe.wproc = nil
	}
}

// Mask 返回 fd 当前注册的事件
func (l *EventLoop) Mask(fd int) Mask {
	if fe, ok := l.events[fd]; ok {
		return fe.mask
	}
	return None
}

// Len 已注册的 fd 数量
func (l *EventLoop) Len() int {
	return len(l.events)
}

// Poll 等待一次并执行就绪 fd 的回调，同一个 fd 先读后写，返回处理的事件数
func (l *EventLoop) Poll(timeout time.Duration) (int, error) {
	fired, err := l.backend.Wait(timeout)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, ev := range fired {
		fe, ok := l.events[ev.Fd]
		if !ok {
			continue
		}
		if fe.mask&ev.Mask&Readable != 0 && fe.rproc != nil {
			l.invoke(fe.rproc, ev.Fd, Readable)
		}
		// 读回调里连接可能已经被释放
		fe, ok = l.events[ev.Fd]
		if !ok {
			processed++
			continue
		}
		if fe.mask&ev.Mask&Writable != 0 && fe.wproc != nil {
			l.invoke(fe.wproc, ev.Fd, Writable)
		}
		processed++
	}
	return processed, nil
}

func (l *EventLoop) invoke(proc FileProc, fd int, mask Mask) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("file event callback panicked",
				"fd", fd, "mask", mask, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	proc(fd, mask)
}

func (l *EventLoop) Close() error {
	clear(l.events)
	return l.backend.Close()
}
