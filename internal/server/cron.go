package server

import (
	"runtime/metrics"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

const (
	queryBufShrinkMin = 32 * 1024
	queryBufIdle      = 2 * time.Second
)

var heapSample = []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}

// cron 每秒执行 Hz 次
func (s *Server) cron(now time.Time) {
	s.memSample = sampleHeapBytes()
	s.clientsCron(now)
	for _, h := range s.cronHooks {
		h(now)
	}
}

func sampleHeapBytes() uint64 {
	metrics.Read(heapSample)
	if heapSample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return heapSample[0].Value.Uint64()
}

func (s *Server) clientsCron(now time.Time) {
	var idle []*connection.Connection
	s.clients.Range(func(_ uint64, c *connection.Connection) bool {
		if s.clientTimedOut(c, now) {
			idle = append(idle, c)
			return true
		}
		s.resizeQueryBuffer(c, now)
		return true
	})
	for _, c := range idle {
		s.logger.Debug("closing idle client", "id", c.ID(), "addr", c.RemoteAddr())
		s.freeClient(c, "timeout")
	}
}

func (s *Server) clientTimedOut(c *connection.Connection, now time.Time) bool {
	if s.cfg.Timeout <= 0 {
		return false
	}
	switch c.Role() {
	case connection.RoleMaster:
		return false
	}
	if c.Blocked() {
		return false
	}
	return now.Sub(c.LastInteraction()) > s.cfg.Timeout
}

// resizeQueryBuffer 回收查询缓冲区里长期用不到的容量
// 峰值只统计两次 cron 之间的数据，每次调用结束都重新开始
func (s *Server) resizeQueryBuffer(c *connection.Connection, now time.Time) {
	q := c.QueryBuf()
	defer q.ResetPeak()
	if q.Cap() <= queryBufShrinkMin {
		return
	}
	idle := now.Sub(c.LastInteraction()) > queryBufIdle
	if q.Peak() < q.Cap()/2 || (idle && q.Len() < q.Cap()/2) {
		q.Compact()
	}
}
