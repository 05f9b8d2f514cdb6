package resp

import (
	"fmt"
	"strconv"
)

var (
	OkReply   = &SimpleStringReply{Status: "OK"}
	PongReply = &SimpleStringReply{Status: "PONG"}
)

func MakeOkReply() *SimpleStringReply {
	return OkReply
}

func MakeArgNumErrReply(cmdName string) *StandardErrReply {
	return MakeErrReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmdName))
}

func MakeUnknownCmdErrReply(cmdName string) *StandardErrReply {
	return MakeErrReply(fmt.Sprintf("ERR unknown command '%s'", cmdName))
}

// MakeProtocolErrReply 协议错误时回给客户端的最后一条回复
func MakeProtocolErrReply(detail string) *StandardErrReply {
	return MakeErrReply("ERR Protocol error: " + detail)
}

type SimpleStringReply struct {
	Status string // 状态字符串
}

func MakeSimpleStringReply(status string) *SimpleStringReply {
	return &SimpleStringReply{
		Status: status,
	}
}

func (r *SimpleStringReply) ToBytes() []byte {
	buf := make([]byte, 0, len(r.Status)+3)
	buf = append(buf, '+')
	buf = append(buf, r.Status...)
	return append(buf, CRLF...)
}

type IntReply struct {
	IntVal int64
}

func MakeIntReply(code int64) *IntReply {
	return &IntReply{
		IntVal: code,
	}
}

func (r *IntReply) ToBytes() []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, r.IntVal, 10)
	return append(buf, CRLF...)
}

type StandardErrReply struct {
	Status string
}

func MakeErrReply(status string) *StandardErrReply {
	return &StandardErrReply{
		Status: status,
	}
}

func (r *StandardErrReply) ToBytes() []byte {
	buf := make([]byte, 0, len(r.Status)+3)
	buf = append(buf, '-')
	buf = append(buf, r.Status...)
	return append(buf, CRLF...)
}

func (r *StandardErrReply) Error() string {
	return r.Status
}

// IsErrorReply 检查是否是 Error 类型
func IsErrorReply(reply Reply) bool {
	if _, ok := reply.(ErrorReply); ok {
		return true
	}
	b := reply.ToBytes()
	return len(b) > 0 && b[0] == '-'
}

type BulkReply struct {
	Arg []byte // 实际数据
}

func MakeBulkReply(arg []byte) *BulkReply {
	return &BulkReply{
		Arg: arg,
	}
}

func (r *BulkReply) ToBytes() []byte {
	if r.Arg == nil {
		return []byte("$-1\r\n") // Null Bulk String
	}
	return appendBulk(make([]byte, 0, len(r.Arg)+16), r.Arg)
}

// 预定义 Null 回复
var NullBulkReply = &BulkReply{Arg: nil}

func MakeNullBulkReply() *BulkReply {
	return NullBulkReply
}

type MultiBulkReply struct {
	Args [][]byte
}

func MakeMultiBulkReply(args [][]byte) *MultiBulkReply {
	return &MultiBulkReply{
		Args: args,
	}
}

func (r *MultiBulkReply) ToBytes() []byte {
	size := 16
	for _, arg := range r.Args {
		size += len(arg) + 16
	}
	buf := make([]byte, 0, size)

	// Header: *2\r\n
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(r.Args)), 10)
	buf = append(buf, CRLF...)

	for _, arg := range r.Args {
		if arg == nil {
			buf = append(buf, "$-1\r\n"...)
			continue
		}
		buf = appendBulk(buf, arg)
	}
	return buf
}

// $<len>\r\n<data>\r\n
func appendBulk(buf, arg []byte) []byte {
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(arg)), 10)
	buf = append(buf, CRLF...)
	buf = append(buf, arg...)
	return append(buf, CRLF...)
}
