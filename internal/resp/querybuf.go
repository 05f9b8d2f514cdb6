package resp

import (
	"io"
	"slices"
)

// QueryBuf 查询缓冲区
// 只在尾部追加读到的数据，已经解析完成的命令立即从头部裁掉
type QueryBuf struct {
	buf  []byte
	peak int // 上次 ResetPeak 以来的最大长度
}

func (q *QueryBuf) Bytes() []byte {
	return q.buf
}

func (q *QueryBuf) Len() int {
	return len(q.buf)
}

func (q *QueryBuf) Cap() int {
	return cap(q.buf)
}

func (q *QueryBuf) Peak() int {
	return q.peak
}

// ResetPeak 峰值重新从当前长度开始统计
func (q *QueryBuf) ResetPeak() {
	q.peak = len(q.buf)
}

// Grow 保证至少还能追加 n 个字节而不需要重新分配
func (q *QueryBuf) Grow(n int) {
	if n > 0 {
		q.buf = slices.Grow(q.buf, n)
	}
}

// Trim 丢弃头部 n 个已经消费的字节
func (q *QueryBuf) Trim(n int) {
	if n <= 0 {
		return
	}
	if n >= len(q.buf) {
		q.buf = q.buf[:0]
		return
	}
	rest := copy(q.buf, q.buf[n:])
	q.buf = q.buf[:rest]
}

// Take 把整个缓冲区的前 n 个字节的所有权交出去，
// 缓冲区本身换成一块容量为 reserve 的新内存
func (q *QueryBuf) Take(n, reserve int) []byte {
	data := q.buf[:n:n]
	q.buf = make([]byte, 0, reserve)
	return data
}

// ReadFrom 从 r 读取最多 n 个字节追加到尾部
func (q *QueryBuf) ReadFrom(r io.Reader, n int) (int, error) {
	q.Grow(n)
	l := len(q.buf)
	m, err := r.Read(q.buf[l : l+n])
	if m > 0 {
		q.buf = q.buf[:l+m]
	}
	if len(q.buf) > q.peak {
		q.peak = len(q.buf)
	}
	return m, err
}

// Append 直接追加数据，预加载和测试使用
func (q *QueryBuf) Append(b []byte) {
	q.buf = append(q.buf, b...)
}

func (q *QueryBuf) Reset() {
	q.buf = q.buf[:0]
}

// Release 释放底层内存
func (q *QueryBuf) Release() {
	q.buf = nil
}

// Compact 按当前长度重新分配缓冲区，回收多余的容量，并重置峰值
func (q *QueryBuf) Compact() {
	q.buf = append(make([]byte, 0, len(q.buf)), q.buf...)
	q.ResetPeak()
}
