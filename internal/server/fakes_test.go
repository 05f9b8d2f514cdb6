package server

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/config"
	"github.com/kgpp34/Redis-Source-Learning/internal/reactor"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

type fakeBackend struct {
	masks  map[int]Mask
	fired  [][]reactor.Event
	addErr map[int]error
}

type Mask = reactor.Mask

func newFakeBackend() *fakeBackend {
	return &fakeBackend{masks: make(map[int]Mask), addErr: make(map[int]error)}
}

func (b *fakeBackend) Add(fd int, mask Mask) error {
	if err := b.addErr[fd]; err != nil {
		return err
	}
	b.masks[fd] = mask
	return nil
}

func (b *fakeBackend) Mod(fd int, mask Mask) error {
	b.masks[fd] = mask
	return nil
}

func (b *fakeBackend) Del(fd int) error {
	delete(b.masks, fd)
	return nil
}

func (b *fakeBackend) Wait(time.Duration) ([]reactor.Event, error) {
	if len(b.fired) == 0 {
		return nil, nil
	}
	evs := b.fired[0]
	b.fired = b.fired[1:]
	return evs, nil
}

func (b *fakeBackend) Close() error { return nil }

// fakeSocket 按脚本返回读数据，写入时可以限制单次和单个事件的字节数
type fakeSocket struct {
	fd      int
	reads   [][]byte
	eof     bool
	readErr error

	out         bytes.Buffer
	maxPerWrite int // 单次 Write 最多接受的字节数，0 不限
	budget      int // 剩余可写字节数，用完返回 ErrWouldBlock，-1 不限
	writeErr    error
	writes      int

	closes int
}

func newFakeSocket(fd int) *fakeSocket {
	return &fakeSocket{fd: fd, budget: -1}
}

func (s *fakeSocket) Fd() int { return s.fd }

func (s *fakeSocket) feed(chunks ...string) {
	for _, c := range chunks {
		s.reads = append(s.reads, []byte(c))
	}
}

func (s *fakeSocket) Read(p []byte) (int, error) {
	if len(s.reads) > 0 {
		n := copy(p, s.reads[0])
		if n < len(s.reads[0]) {
			s.reads[0] = s.reads[0][n:]
		} else {
			s.reads = s.reads[1:]
		}
		return n, nil
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.eof {
		return 0, io.EOF
	}
	return 0, connection.ErrWouldBlock
}

func (s *fakeSocket) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.budget == 0 {
		return 0, connection.ErrWouldBlock
	}
	n := len(p)
	if s.maxPerWrite > 0 {
		n = min(n, s.maxPerWrite)
	}
	if s.budget > 0 {
		n = min(n, s.budget)
		s.budget -= n
	}
	s.writes++
	s.out.Write(p[:n])
	return n, nil
}

func (s *fakeSocket) Close() error {
	s.closes++
	return nil
}

type fakeListener struct {
	fd      int
	pending []*fakeSocket
	tuneErr map[int]error // 按 fd 模拟设置 socket 选项失败
	err     error
	closed  bool
}

func (l *fakeListener) Fd() int      { return l.fd }
func (l *fakeListener) Addr() string { return "fake:6379" }
func (l *fakeListener) Close() error { l.closed = true; return nil }

func (l *fakeListener) Accept() (connection.Socket, string, error) {
	if len(l.pending) > 0 {
		s := l.pending[0]
		l.pending = l.pending[1:]
		addr := fmt.Sprintf("10.0.0.1:%d", 40000+s.fd)
		if err := l.tuneErr[s.fd]; err != nil {
			return s, addr, fmt.Errorf("%w: %v", ErrSocketOptions, err)
		}
		return s, addr, nil
	}
	if l.err != nil {
		err := l.err
		l.err = nil
		return nil, "", err
	}
	return nil, "", connection.ErrWouldBlock
}

// recorder 记录派发的命令，默认每条命令回复 +OK
type recorder struct {
	cmds  [][]string
	reply func(c *connection.Connection, args [][]byte) connection.Status
}

func (r *recorder) Dispatch(c *connection.Connection, args [][]byte) connection.Status {
	cmd := make([]string, len(args))
	for i, a := range args {
		cmd[i] = string(a)
	}
	r.cmds = append(r.cmds, cmd)
	if r.reply != nil {
		return r.reply(c, args)
	}
	c.SendReply(resp.OkReply)
	return connection.StatusOK
}

type harness struct {
	t       *testing.T
	srv     *Server
	backend *fakeBackend
	disp    *recorder
	ln      *fakeListener
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "fake:6379"
	return cfg
}

func newHarness(t *testing.T, cfg config.Config, opts ...Option) *harness {
	t.Helper()
	b := newFakeBackend()
	disp := &recorder{}
	opts = append(opts, WithEventLoop(reactor.NewWithBackend(b, nil)))
	s, err := New(cfg, disp, opts...)
	if err != nil {
		t.Fatal(err)
	}
	ln := &fakeListener{fd: 3}
	if err := s.Attach(ln); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, srv: s, backend: b, disp: disp, ln: ln}
}

// fire 模拟一次 fd 就绪
func (h *harness) fire(fd int, mask Mask) {
	h.t.Helper()
	h.backend.fired = append(h.backend.fired, []reactor.Event{{Fd: fd, Mask: mask}})
	if _, err := h.srv.loop.Poll(0); err != nil {
		h.t.Fatal(err)
	}
}

// connect 通过监听 socket 接入一个连接
func (h *harness) connect(sock *fakeSocket) *connection.Connection {
	h.t.Helper()
	h.ln.pending = append(h.ln.pending, sock)
	h.fire(h.ln.fd, reactor.Readable)
	var found *connection.Connection
	h.srv.clients.Range(func(_ uint64, c *connection.Connection) bool {
		if c.Fd() == sock.fd {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		h.t.Fatalf("socket %d was not registered", sock.fd)
	}
	return found
}

func (h *harness) registered(fd int) Mask {
	return h.srv.loop.Mask(fd)
}

func (h *harness) verify(c *connection.Connection) {
	h.t.Helper()
	if err := c.Verify(); err != nil {
		h.t.Fatal(err)
	}
}
