//go:build unix

package connection

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

type fdSocket struct {
	fd int
}

// NewFDSocket 包装一个已经设置为非阻塞的 fd
func NewFDSocket(fd int) Socket {
	return &fdSocket{fd: fd}
}

func (s *fdSocket) Fd() int {
	return s.fd
}

func (s *fdSocket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

func (s *fdSocket) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}

func (s *fdSocket) Close() error {
	return unix.Close(s.fd)
}
