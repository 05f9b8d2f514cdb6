package connection

import "errors"

var (
	// ErrWouldBlock 非阻塞 fd 暂时不可读写
	ErrWouldBlock = errors.New("connection: operation would block")
	ErrClosed     = errors.New("connection: closed")
)

// Socket 连接底层的非阻塞 socket
// Read 返回 0 字节时一定伴随 io.EOF 或 ErrWouldBlock
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}
