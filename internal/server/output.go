package server

import (
	"errors"

	"github.com/kgpp34/Redis-Source-Learning/internal/reactor"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

// sendReply 连接可写时调用
// 单次最多写出 MaxWritePerEvent 字节，避免一个连接拖住其他连接，
// 超出内存上限时不限制，尽快把回复占用的内存释放掉
func (s *Server) sendReply(c *connection.Connection) {
	sock := c.Socket()
	written := 0
	for {
		p := c.Pending()
		if p == nil {
			break
		}
		if !s.overMemoryBudget() {
			budget := s.cfg.MaxWritePerEvent - written
			if budget <= 0 {
				s.metrics.WriteCapHits.Inc()
				break
			}
			p = p[:min(len(p), budget)]
		}

		n, err := sock.Write(p)
		if n > 0 {
			c.Consume(n)
			written += n
		}
		if err != nil {
			if errors.Is(err, connection.ErrWouldBlock) {
				break
			}
			s.logger.Debug("writing to client", "id", c.ID(), "addr", c.RemoteAddr(), "error", err)
			s.freeClient(c, "write-error")
			return
		}
		if n == 0 {
			break
		}
	}

	if written > 0 {
		s.metrics.NetOutputBytes.Add(float64(written))
		// 主库连接不更新，避免主库静默时超时检测失效
		if c.Role() != connection.RoleMaster {
			c.Touch(s.now())
		}
	}

	if !c.HasPendingReplies() {
		s.loop.DeleteEvent(c.Fd(), reactor.Writable)
		if c.CloseAfterReply() {
			s.freeClient(c, "close-after-reply")
		}
	}
}
