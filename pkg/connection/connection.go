package connection

import (
	"bytes"
	"fmt"
	"time"

	"github.com/eapache/queue"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
)

// ReplyChunkBytes 内联回复缓冲区的容量
const ReplyChunkBytes = 16 * 1024

// Status Dispatch 的返回值
type Status uint8

const (
	StatusOK       Status = iota // 命令处理完，可以解析下一条
	StatusDeferred               // 命令挂起，保留解析状态，暂停处理这个连接
)

// Dispatcher 命令执行方
type Dispatcher interface {
	Dispatch(c *Connection, args [][]byte) Status
}

// DispatcherFunc 函数形式的 Dispatcher
type DispatcherFunc func(c *Connection, args [][]byte) Status

func (f DispatcherFunc) Dispatch(c *Connection, args [][]byte) Status {
	return f(c, args)
}

// WriteArm 连接第一次有待发送数据时调用，负责注册写事件
type WriteArm func(c *Connection) error

// Connection 一个客户端连接的全部状态
// 只在事件循环线程里访问，不加锁
type Connection struct {
	id         uint64
	sock       Socket
	remoteAddr string

	role             Role
	masterForceReply bool
	dbIndex          int

	query   resp.QueryBuf
	decoder *resp.Decoder

	// 回复: buf 有空间且 reply 为空时写 buf，否则追加到 reply 队列
	buf        []byte
	reply      *queue.Queue // []byte
	replyBytes int          // reply 中所有块的字节数之和
	sentLen    int          // 当前正在发送的 buf 或队头块已经写出的字节数

	writeArm        WriteArm
	blocked         bool // 命令被挂起，暂停解析后续请求
	closeAfterReply bool
	closed          bool

	createdAt       time.Time
	lastInteraction time.Time
}

// New 创建网络连接
func New(id uint64, sock Socket, bigArg int, now time.Time) *Connection {
	return &Connection{
		id:              id,
		sock:            sock,
		decoder:         resp.NewDecoder(bigArg),
		buf:             make([]byte, 0, ReplyChunkBytes),
		reply:           queue.New(),
		createdAt:       now,
		lastInteraction: now,
	}
}

// NewPseudo 创建没有 fd 的伪连接
func NewPseudo(id uint64, role Role, now time.Time) *Connection {
	c := New(id, nil, 0, now)
	c.role = role
	return c
}

func (c *Connection) ID() uint64 {
	return c.id
}

// Fd 伪连接返回 -1
func (c *Connection) Fd() int {
	if c.sock == nil {
		return -1
	}
	return c.sock.Fd()
}

func (c *Connection) Socket() Socket {
	return c.sock
}

func (c *Connection) RemoteAddr() string {
	if c.sock == nil {
		return "local:" + c.role.String()
	}
	return c.remoteAddr
}

func (c *Connection) SetRemoteAddr(addr string) {
	c.remoteAddr = addr
}

func (c *Connection) Role() Role {
	return c.role
}

func (c *Connection) SetRole(r Role) {
	c.role = r
}

// SetMasterForceReply 允许主库连接收到回复(REPLCONF GETACK 之类的场景)
func (c *Connection) SetMasterForceReply(on bool) {
	c.masterForceReply = on
}

func (c *Connection) GetDBIndex() int {
	return c.dbIndex
}

func (c *Connection) SelectDB(index int) {
	c.dbIndex = index
}

func (c *Connection) QueryBuf() *resp.QueryBuf {
	return &c.query
}

func (c *Connection) Decoder() *resp.Decoder {
	return c.decoder
}

func (c *Connection) SetWriteArm(fn WriteArm) {
	c.writeArm = fn
}

func (c *Connection) Blocked() bool {
	return c.blocked
}

func (c *Connection) SetBlocked(b bool) {
	c.blocked = b
}

func (c *Connection) CloseAfterReply() bool {
	return c.closeAfterReply
}

// SetCloseAfterReply 回复发送完后关闭连接，之后追加的回复全部丢弃
func (c *Connection) SetCloseAfterReply() {
	c.closeAfterReply = true
}

func (c *Connection) IsClosed() bool {
	return c.closed
}

func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Connection) LastInteraction() time.Time {
	return c.lastInteraction
}

func (c *Connection) Touch(now time.Time) {
	c.lastInteraction = now
}

// prepareToWrite 判断回复能否写出，必要时注册写事件
func (c *Connection) prepareToWrite() bool {
	if c.closed || c.closeAfterReply {
		return false
	}
	switch c.role {
	case RoleScript:
		return true
	case RolePseudo:
		return false
	case RoleMaster:
		if !c.masterForceReply {
			return false
		}
	}
	if c.sock == nil {
		return false
	}
	if !c.HasPendingReplies() && c.writeArm != nil {
		if err := c.writeArm(c); err != nil {
			return false
		}
	}
	return true
}

// AddReply 追加一段回复
func (c *Connection) AddReply(b []byte) {
	if !c.prepareToWrite() {
		return
	}
	if c.reply.Length() == 0 && len(c.buf)+len(b) <= ReplyChunkBytes {
		c.buf = append(c.buf, b...)
		return
	}
	chunk := bytes.Clone(b)
	if chunk == nil {
		chunk = []byte{}
	}
	c.reply.Add(chunk)
	c.replyBytes += len(chunk)
}

func (c *Connection) SendReply(r resp.Reply) {
	c.AddReply(r.ToBytes())
}

func (c *Connection) AddReplyError(msg string) {
	c.SendReply(resp.MakeErrReply(msg))
}

// HasPendingReplies 是否还有没写出去的回复
func (c *Connection) HasPendingReplies() bool {
	return len(c.buf) > 0 || c.reply.Length() > 0
}

// ReplyBytes 队列中还没发送完的块的总字节数
func (c *Connection) ReplyBytes() int {
	return c.replyBytes
}

// PendingBytes 还没写出去的字节数，包括内联缓冲区
func (c *Connection) PendingBytes() int {
	if len(c.buf) > 0 {
		return len(c.buf) - c.sentLen + c.replyBytes
	}
	return c.replyBytes - c.sentLen
}

// SentLen 当前发送源已经写出的字节数
func (c *Connection) SentLen() int {
	return c.sentLen
}

// Pending 返回下一段待发送的数据，空块直接丢弃，全部发完返回 nil
// 内联缓冲区总是先于队列发送
func (c *Connection) Pending() []byte {
	if len(c.buf) > 0 {
		return c.buf[c.sentLen:]
	}
	for c.reply.Length() > 0 {
		head := c.reply.Peek().([]byte)
		if len(head) > 0 {
			return head[c.sentLen:]
		}
		c.reply.Remove()
	}
	return nil
}

// Consume 标记 Pending 返回的数据中前 n 个字节已经写出
func (c *Connection) Consume(n int) {
	if n <= 0 {
		return
	}
	if len(c.buf) > 0 {
		c.sentLen += n
		if c.sentLen >= len(c.buf) {
			c.buf = c.buf[:0]
			c.sentLen = 0
		}
		return
	}
	if c.reply.Length() == 0 {
		return
	}
	head := c.reply.Peek().([]byte)
	c.sentLen += n
	if c.sentLen >= len(head) {
		c.reply.Remove()
		c.replyBytes -= len(head)
		c.sentLen = 0
	}
}

// TakeReplies 取走全部未发送的回复，脚本伪连接用
func (c *Connection) TakeReplies() []byte {
	out := make([]byte, 0, c.PendingBytes())
	for p := c.Pending(); p != nil; p = c.Pending() {
		out = append(out, p...)
		c.Consume(len(p))
	}
	return out
}

// Verify 检查回复相关的计数是否一致
func (c *Connection) Verify() error {
	sum := 0
	for i := 0; i < c.reply.Length(); i++ {
		sum += len(c.reply.Get(i).([]byte))
	}
	if sum != c.replyBytes {
		return fmt.Errorf("replyBytes=%d but queued chunks hold %d bytes", c.replyBytes, sum)
	}
	if len(c.buf) > ReplyChunkBytes {
		return fmt.Errorf("inline buffer holds %d bytes, cap is %d", len(c.buf), ReplyChunkBytes)
	}
	if len(c.buf) > 0 {
		if c.sentLen > len(c.buf) {
			return fmt.Errorf("sentLen=%d exceeds inline buffer length %d", c.sentLen, len(c.buf))
		}
		return nil
	}
	if c.reply.Length() > 0 {
		if head := c.reply.Peek().([]byte); c.sentLen > len(head) {
			return fmt.Errorf("sentLen=%d exceeds head chunk length %d", c.sentLen, len(head))
		}
	} else if c.sentLen != 0 {
		return fmt.Errorf("sentLen=%d with nothing pending", c.sentLen)
	}
	return nil
}

// Close 关闭 socket 并释放缓冲区，重复调用是空操作
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.query.Release()
	c.decoder.Reset()
	c.buf = nil
	c.reply = queue.New()
	c.replyBytes = 0
	c.sentLen = 0
	if c.sock == nil {
		return nil
	}
	return c.sock.Close()
}
