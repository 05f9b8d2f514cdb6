package server

import (
	"errors"

	"github.com/kgpp34/Redis-Source-Learning/internal/reactor"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

var errMaxClients = resp.MakeErrReply("ERR max number of clients reached")

// acceptHandler 监听 socket 可读时，一次最多接收 MaxAcceptsPerCall 个连接
func (s *Server) acceptHandler(ln Listener) reactor.FileProc {
	return func(int, reactor.Mask) {
		for n := s.cfg.MaxAcceptsPerCall; n > 0; n-- {
			sock, addr, err := ln.Accept()
			if sock != nil && errors.Is(err, ErrSocketOptions) {
				s.logger.Debug("tuning client socket", "addr", addr, "error", err)
				err = nil
			}
			if err != nil {
				if !errors.Is(err, connection.ErrWouldBlock) {
					s.acceptLog.Do(func() {
						s.logger.Warn("accepting client connection", "listener", ln.Addr(), "error", err)
					})
				}
				return
			}
			s.logger.Trace("accepted", "addr", addr)
			s.acceptCommon(sock, addr)
		}
	}
}

func (s *Server) acceptCommon(sock connection.Socket, addr string) {
	c, err := s.createClient(sock)
	if err != nil {
		s.logger.Debug("registering client", "addr", addr, "error", err)
		_ = sock.Close()
		return
	}
	c.SetRemoteAddr(addr)

	// 连接已经建好，再检查数量上限，这样才能把错误回给客户端
	if s.clients.Size() > s.cfg.MaxClients {
		// 尽力而为，写不出去也无所谓
		_, _ = sock.Write(errMaxClients.ToBytes())
		s.metrics.ConnectionsRejected.Inc()
		s.freeClient(c, "maxclients")
		return
	}
	s.metrics.ConnectionsAccepted.Inc()
}
