//go:build linux

package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

type tcpListener struct {
	fd        int
	addr      string
	keepAlive time.Duration
}

// listenTCP 创建非阻塞的监听 socket，IPv6 地址使用 AF_INET6，其余使用 AF_INET
func listenTCP(addr string, backlog int, keepAlive time.Duration) (Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	var (
		family = unix.AF_INET
		sa     unix.Sockaddr
	)
	if ip4 := tcpAddr.IP.To4(); tcpAddr.IP == nil || ip4 != nil {
		sa4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
		if ip4 != nil {
			copy(sa4.Addr[:], ip4)
		}
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], tcpAddr.IP.To16())
		sa = sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	bound := addr
	if local, err := unix.Getsockname(fd); err == nil {
		bound = sockaddrString(local)
	}
	return &tcpListener{fd: fd, addr: bound, keepAlive: keepAlive}, nil
}

func (l *tcpListener) Fd() int {
	return l.fd
}

func (l *tcpListener) Addr() string {
	return l.addr
}

func (l *tcpListener) Accept() (connection.Socket, string, error) {
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, "", connection.ErrWouldBlock
		case err != nil:
			return nil, "", fmt.Errorf("accept: %w", err)
		}

		sock, addr := connection.NewFDSocket(nfd), sockaddrString(sa)
		if err := tuneSocket(nfd, l.keepAlive); err != nil {
			return sock, addr, fmt.Errorf("%w: %v", ErrSocketOptions, err)
		}
		return sock, addr, nil
	}
}

func (l *tcpListener) Close() error {
	return unix.Close(l.fd)
}

// tuneSocket 关闭 Nagle，按需开启 keepalive
func tuneSocket(fd int, keepAlive time.Duration) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return fmt.Errorf("setsockopt TCP_NODELAY: %w", err)
	}
	if keepAlive <= 0 {
		return nil
	}

	secs := max(int(keepAlive/time.Second), 1)
	opts := []struct {
		level, opt, value int
		name              string
	}{
		{unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1, "SO_KEEPALIVE"},
		{unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs, "TCP_KEEPIDLE"},
		{unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, max(secs/3, 1), "TCP_KEEPINTVL"},
		{unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3, "TCP_KEEPCNT"},
	}
	for _, o := range opts {
		if err := unix.SetsockoptInt(fd, o.level, o.opt, o.value); err != nil {
			return fmt.Errorf("setsockopt %s: %w", o.name, err)
		}
	}
	return nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return "unknown"
	}
}
