//go:build !linux

package server

import (
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/reactor"
)

func listenTCP(string, int, time.Duration) (Listener, error) {
	return nil, reactor.ErrUnsupported
}
