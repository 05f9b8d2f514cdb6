// Package server 单线程的网络服务端: 接收连接、读取并解析请求、派发命令、写回回复
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/kgpp34/Redis-Source-Learning/internal/config"
	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
	"github.com/kgpp34/Redis-Source-Learning/internal/metrics"
	"github.com/kgpp34/Redis-Source-Learning/internal/reactor"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

var ErrNoListeners = errors.New("server: no listeners")

// ErrSocketOptions 连接已经建立，只是设置 socket 选项失败，连接仍然可用
var ErrSocketOptions = errors.New("server: set socket options")

// Listener 一个非阻塞的监听 socket
type Listener interface {
	Fd() int
	// Accept 没有新连接时返回 connection.ErrWouldBlock，
	// 返回 ErrSocketOptions 时 socket 同时有效
	Accept() (connection.Socket, string, error)
	Addr() string
	Close() error
}

type Option func(*Server)

func WithLogger(l hclog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMemoryUsage 替换内存占用的来源
func WithMemoryUsage(fn func() uint64) Option {
	return func(s *Server) { s.memUsage = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Server) { s.now = fn }
}

func WithEventLoop(l *reactor.EventLoop) Option {
	return func(s *Server) { s.loop = l }
}

type Server struct {
	cfg        config.Config
	dispatcher connection.Dispatcher
	loop       *reactor.EventLoop
	listeners  []Listener

	// 只有事件循环写入，metrics 抓取时并发读取
	clients *xsync.MapOf[uint64, *connection.Connection]
	nextID  uint64
	runID   string

	logger    hclog.Logger
	metrics   *metrics.Metrics
	acceptLog rate.Sometimes

	memUsage  func() uint64
	memSample uint64
	now       func() time.Time
	cronHooks []func(now time.Time)
}

func New(cfg config.Config, dispatcher connection.Dispatcher, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		clients:    xsync.NewMapOf[uint64, *connection.Connection](),
		runID:      ulid.Make().String(),
		now:        time.Now,
		acceptLog:  rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNop(s.logger).Named("server")
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.memUsage == nil {
		s.memUsage = func() uint64 { return s.memSample }
	}
	if s.loop == nil {
		loop, err := reactor.New(s.logger.Named("reactor"))
		if err != nil {
			return nil, fmt.Errorf("create event loop: %w", err)
		}
		s.loop = loop
	}

	s.metrics.RegisterGauge("net", "connected_clients", "Connected clients",
		func() float64 { return float64(s.clients.Size()) })
	return s, nil
}

func (s *Server) RunID() string {
	return s.runID
}

func (s *Server) Config() config.Config {
	return s.cfg
}

// Clients 当前的网络连接数
func (s *Server) Clients() int {
	return s.clients.Size()
}

// Addrs 所有监听地址
func (s *Server) Addrs() []string {
	addrs := make([]string, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// AddCronHook 注册定时任务，每个 cron 周期在事件循环线程里调用
func (s *Server) AddCronHook(fn func(now time.Time)) {
	s.cronHooks = append(s.cronHooks, fn)
}

// Listen 在配置的地址上监听
func (s *Server) Listen() error {
	ln, err := listenTCP(s.cfg.Addr, s.cfg.Backlog, s.cfg.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	if err := s.Attach(ln); err != nil {
		_ = ln.Close()
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr(), "run_id", s.runID)
	return nil
}

// Attach 把监听 socket 注册到事件循环
func (s *Server) Attach(ln Listener) error {
	if err := s.loop.AddEvent(ln.Fd(), reactor.Readable, s.acceptHandler(ln)); err != nil {
		return err
	}
	s.listeners = append(s.listeners, ln)
	return nil
}

// Serve 运行事件循环直到 ctx 结束
func (s *Server) Serve(ctx context.Context) error {
	if len(s.listeners) == 0 {
		return ErrNoListeners
	}
	interval := s.cfg.CronInterval()
	next := s.now().Add(interval)
	for ctx.Err() == nil {
		if _, err := s.loop.Poll(max(next.Sub(s.now()), 0)); err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if now := s.now(); !now.Before(next) {
			s.cron(now)
			next = now.Add(interval)
		}
	}
	return nil
}

// Shutdown 关闭所有连接和监听 socket，必须在 Serve 返回后调用
func (s *Server) Shutdown() error {
	var clients []*connection.Connection
	s.clients.Range(func(_ uint64, c *connection.Connection) bool {
		clients = append(clients, c)
		return true
	})
	for _, c := range clients {
		s.freeClient(c, "shutdown")
	}

	var errs []error
	for _, ln := range s.listeners {
		s.loop.DeleteEvent(ln.Fd(), reactor.Readable)
		if err := ln.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.listeners = nil
	if err := s.loop.Close(); err != nil {
		errs = append(errs, err)
	}
	s.logger.Info("server stopped", "closed_clients", len(clients))
	return errors.Join(errs...)
}

// createClient 创建网络连接并注册读事件
func (s *Server) createClient(sock connection.Socket) (*connection.Connection, error) {
	s.nextID++
	c := connection.New(s.nextID, sock, s.cfg.BigArgThreshold, s.now())
	err := s.loop.AddEvent(sock.Fd(), reactor.Readable, func(int, reactor.Mask) {
		s.readQuery(c)
	})
	if err != nil {
		return nil, err
	}
	c.SetWriteArm(s.armWrite)
	s.clients.Store(c.ID(), c)
	return c, nil
}

func (s *Server) armWrite(c *connection.Connection) error {
	return s.loop.AddEvent(c.Fd(), reactor.Writable, func(int, reactor.Mask) {
		s.sendReply(c)
	})
}

// NewPseudoClient 创建没有 fd 的伪连接，不会注册到事件循环
func (s *Server) NewPseudoClient(role connection.Role) *connection.Connection {
	s.nextID++
	return connection.NewPseudo(s.nextID, role, s.now())
}

// Resume 恢复一个被挂起的连接，继续处理已经缓冲的请求
func (s *Server) Resume(c *connection.Connection) {
	if !c.Blocked() || c.IsClosed() {
		return
	}
	c.SetBlocked(false)
	c.Decoder().Reset()
	s.processInputBuffer(c)
}

// freeClient 释放连接，可以重复调用，调用方之后不能再访问 c
func (s *Server) freeClient(c *connection.Connection, reason string) {
	if c.IsClosed() {
		return
	}
	if fd := c.Fd(); fd >= 0 {
		s.loop.DeleteEvent(fd, reactor.Readable|reactor.Writable)
	}
	s.clients.Delete(c.ID())
	if err := c.Close(); err != nil {
		s.logger.Debug("closing client socket", "id", c.ID(), "error", err)
	}
	s.metrics.ConnectionsClosed.WithLabelValues(reason).Inc()
	s.logger.Debug("client closed", "id", c.ID(), "addr", c.RemoteAddr(), "reason", reason)
}

// FreeClient 立即关闭连接
func (s *Server) FreeClient(c *connection.Connection) {
	s.freeClient(c, "killed")
}

func (s *Server) overMemoryBudget() bool {
	return s.cfg.MaxMemory > 0 && s.memUsage() >= s.cfg.MaxMemory
}
