package server

import (
	"errors"
	"io"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

// readQuery 连接可读时调用
func (s *Server) readQuery(c *connection.Connection) {
	q := c.QueryBuf()
	readLen := c.Decoder().ReadHint(q, s.cfg.ReadChunkSize)

	n, err := q.ReadFrom(c.Socket(), readLen)
	switch {
	case errors.Is(err, connection.ErrWouldBlock):
		return
	case errors.Is(err, io.EOF):
		s.logger.Debug("client closed connection", "id", c.ID(), "addr", c.RemoteAddr())
		s.freeClient(c, "eof")
		return
	case err != nil:
		s.logger.Debug("reading from client", "id", c.ID(), "addr", c.RemoteAddr(), "error", err)
		s.freeClient(c, "read-error")
		return
	}

	s.metrics.NetInputBytes.Add(float64(n))
	c.Touch(s.now())

	if c.CloseAfterReply() {
		// 连接马上要关闭，后续请求不再处理
		q.Reset()
		return
	}
	if q.Len() > s.cfg.MaxQueryBufLen {
		s.logger.Warn("closing client that reached max query buffer length",
			"id", c.ID(), "addr", c.RemoteAddr(), "qbuf", q.Len())
		s.freeClient(c, "querybuf")
		return
	}
	s.processInputBuffer(c)
}

// processInputBuffer 尽可能多地解析并派发缓冲区里的命令，流水线请求在这里一次处理完
func (s *Server) processInputBuffer(c *connection.Connection) {
	q := c.QueryBuf()
	d := c.Decoder()
	for q.Len() > 0 {
		if c.IsClosed() || c.Blocked() || c.CloseAfterReply() {
			return
		}

		st, err := d.Decode(q)
		if err != nil {
			s.setProtocolError(c, err)
			return
		}
		if st == resp.NeedMore {
			return
		}

		args := d.CmdLine()
		if len(args) == 0 {
			d.Reset()
			continue
		}

		status := s.dispatcher.Dispatch(c, args)
		s.metrics.CommandsProcessed.Inc()
		if c.IsClosed() {
			return
		}
		switch status {
		case connection.StatusOK:
			d.Reset()
		case connection.StatusDeferred:
			c.SetBlocked(true)
			return
		}
	}
}

// setProtocolError 回复一条协议错误，丢弃剩余请求，回复写完后关闭连接
func (s *Server) setProtocolError(c *connection.Connection, err error) {
	detail := err.Error()
	var perr *resp.ProtocolError
	if errors.As(err, &perr) {
		detail = perr.Msg
	}
	s.logger.Debug("protocol error from client", "id", c.ID(), "addr", c.RemoteAddr(), "error", detail)
	s.metrics.ProtocolErrors.Inc()

	c.SendReply(resp.MakeProtocolErrReply(detail))
	c.SetCloseAfterReply()
	c.QueryBuf().Reset()
	c.Decoder().Reset()

	// 回复写不出去(主库连接之类)，直接关闭
	if !c.HasPendingReplies() {
		s.freeClient(c, "protocol-error")
	}
}
