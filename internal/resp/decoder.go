package resp

import (
	"bytes"
	"fmt"
)

// 协议限制
const (
	MaxInlineLen    = 64 * 1024         // 没有换行符的内联请求/长度行的最大长度
	MaxMultibulkLen = 1024 * 1024       // *<n> 的上限
	MaxBulkLen      = 512 * 1024 * 1024 // $<len> 的上限

	DefaultBigArg = 32 * 1024 // 超过这个长度的参数走零拷贝路径
)

// ReqType 当前命令的协议格式，确定后在整条命令解析完之前保持不变
type ReqType uint8

const (
	ReqUnknown ReqType = iota
	ReqInline
	ReqMultibulk
)

// Phase 解码器所处的阶段
type Phase uint8

const (
	AwaitingType       Phase = iota // 还没看到命令的第一个字节
	InlinePending                   // 内联命令，等待换行符
	MultibulkHeader                 // 等待 *<argc>\r\n
	MultibulkArgHeader              // 等待 $<len>\r\n
	MultibulkArgBody                // 长度已知，等待参数内容
	CommandReady                    // 参数已经全部就绪，等待派发
)

func (p Phase) String() string {
	switch p {
	case AwaitingType:
		return "awaiting-type"
	case InlinePending:
		return "inline"
	case MultibulkHeader:
		return "multibulk-header"
	case MultibulkArgHeader:
		return "multibulk-arg-header"
	case MultibulkArgBody:
		return "multibulk-arg-body"
	case CommandReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Status 一次 Decode 调用的结果
type Status uint8

const (
	NeedMore Status = iota // 数据不够，等下一次读事件
	Complete               // 解析出一条完整命令
)

// ArgSource 参数字节的来源
type ArgSource uint8

const (
	ArgCopied      ArgSource = iota // 从查询缓冲区拷贝出来
	ArgTransferred                  // 直接接管了整个查询缓冲区
)

// Arg 一个已解析的参数
type Arg struct {
	Data   []byte
	Source ArgSource
}

// ProtocolError 请求不符合协议，连接不能再继续解析
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "Protocol error: " + e.Msg
}

func protocolErr(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// Decoder 增量式的请求解码器
// 每次调用 Decode 最多产出一条命令，数据不完整时保存进度，下次从断点继续
type Decoder struct {
	reqType      ReqType
	phase        Phase
	multibulkLen int // 还没读入的参数个数
	bulkLen      int // 当前参数的长度，-1 表示未知
	args         []Arg
	bigArg       int
}

func NewDecoder(bigArg int) *Decoder {
	if bigArg <= 0 {
		bigArg = DefaultBigArg
	}
	return &Decoder{
		bulkLen: -1,
		bigArg:  bigArg,
	}
}

func (d *Decoder) ReqType() ReqType {
	return d.reqType
}

func (d *Decoder) Phase() Phase {
	return d.phase
}

func (d *Decoder) Args() []Arg {
	return d.args
}

// CmdLine 返回当前命令的参数列表，参数的底层内存归调用方所有
func (d *Decoder) CmdLine() [][]byte {
	out := make([][]byte, len(d.args))
	for i, a := range d.args {
		out[i] = a.Data
	}
	return out
}

// Reset 命令派发之后重置，准备解析下一条命令
func (d *Decoder) Reset() {
	clear(d.args)
	d.args = d.args[:0]
	d.reqType = ReqUnknown
	d.phase = AwaitingType
	d.multibulkLen = 0
	d.bulkLen = -1
}

// ReadHint 正在读大参数时，只读取这个参数剩下的字节，
// 这样参数读完时缓冲区里恰好只有它自己，可以走零拷贝路径
func (d *Decoder) ReadHint(q *QueryBuf, readLen int) int {
	if d.reqType == ReqMultibulk && d.multibulkLen > 0 && d.bulkLen >= d.bigArg {
		remaining := d.bulkLen + 2 - q.Len()
		if remaining > 0 && remaining < readLen {
			return remaining
		}
	}
	return readLen
}

// Decode 尝试从 q 中解析出一条命令
func (d *Decoder) Decode(q *QueryBuf) (Status, error) {
	if d.phase == CommandReady {
		return Complete, nil
	}
	if q.Len() == 0 {
		return NeedMore, nil
	}

	if d.reqType == ReqUnknown {
		if q.Bytes()[0] == '*' {
			d.reqType = ReqMultibulk
			d.phase = MultibulkHeader
		} else {
			d.reqType = ReqInline
			d.phase = InlinePending
		}
	}

	if d.reqType == ReqInline {
		return d.decodeInline(q)
	}
	return d.decodeMultibulk(q)
}

// <arg0> <arg1> ... <argN>\r\n
func (d *Decoder) decodeInline(q *QueryBuf) (Status, error) {
	buf := q.Bytes()
	newline := bytes.IndexByte(buf, '\n')
	if newline < 0 {
		if len(buf) > MaxInlineLen {
			return NeedMore, protocolErr("too big inline request")
		}
		return NeedMore, nil
	}

	line := buf[:newline]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	tokens, err := SplitArgs(line)
	if err != nil {
		return NeedMore, protocolErr("unbalanced quotes in request")
	}

	// tokens 都是新分配的内存，可以放心裁剪缓冲区
	q.Trim(newline + 1)

	d.args = d.args[:0]
	for _, tok := range tokens {
		// 空参数直接丢掉
		if len(tok) > 0 {
			d.args = append(d.args, Arg{Data: tok, Source: ArgCopied})
		}
	}
	d.phase = CommandReady
	return Complete, nil
}

// *3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n
func (d *Decoder) decodeMultibulk(q *QueryBuf) (Status, error) {
	buf := q.Bytes()
	pos := 0

	if d.multibulkLen == 0 {
		cr := bytes.IndexByte(buf, '\r')
		if cr < 0 {
			if len(buf) > MaxInlineLen {
				return NeedMore, protocolErr("too big mbulk count string")
			}
			return NeedMore, nil
		}
		// 还要等 \n
		if cr+1 >= len(buf) {
			return NeedMore, nil
		}
		if buf[cr+1] != '\n' {
			return NeedMore, protocolErr("invalid multibulk length")
		}

		n, ok := parseLen(buf[1:cr])
		if !ok || n > MaxMultibulkLen {
			return NeedMore, protocolErr("invalid multibulk length")
		}
		pos = cr + 2

		// *0\r\n 或 *-1\r\n: 空命令
		if n <= 0 {
			q.Trim(pos)
			d.phase = CommandReady
			return Complete, nil
		}

		d.multibulkLen = int(n)
		d.args = make([]Arg, 0, min(d.multibulkLen, 1024))
		d.phase = MultibulkArgHeader
	}

	for d.multibulkLen > 0 {
		if d.bulkLen == -1 {
			rest := buf[pos:]
			cr := bytes.IndexByte(rest, '\r')
			if cr < 0 {
				if len(rest) > MaxInlineLen {
					return NeedMore, protocolErr("too big bulk count string")
				}
				break
			}
			if cr+1 >= len(rest) {
				break
			}
			if rest[0] != '$' {
				return NeedMore, protocolErr("expected '$', got '%c'", rest[0])
			}
			if rest[cr+1] != '\n' {
				return NeedMore, protocolErr("invalid bulk length")
			}

			n, ok := parseLen(rest[1:cr])
			if !ok || n < 0 || n > MaxBulkLen {
				return NeedMore, protocolErr("invalid bulk length")
			}
			pos += cr + 2

			if int(n) >= d.bigArg && len(buf)-pos <= int(n)+2 {
				// 大参数: 把它挪到缓冲区开头，并一次性预留好空间
				q.Trim(pos)
				pos = 0
				q.Grow(int(n) + 2 - q.Len())
				buf = q.Bytes()
			}

			d.bulkLen = int(n)
			d.phase = MultibulkArgBody
		}

		// 参数内容 + \r\n 还没到齐
		if len(buf)-pos < d.bulkLen+2 {
			break
		}
		if buf[pos+d.bulkLen] != '\r' || buf[pos+d.bulkLen+1] != '\n' {
			return NeedMore, protocolErr("expected CRLF after bulk")
		}

		if pos == 0 && d.bulkLen >= d.bigArg && len(buf) == d.bulkLen+2 {
			// 缓冲区里恰好只有这个参数，直接接管，不做拷贝
			data := q.Take(d.bulkLen, d.bulkLen+2)
			d.args = append(d.args, Arg{Data: data, Source: ArgTransferred})
			buf = q.Bytes()
		} else {
			data := make([]byte, d.bulkLen)
			copy(data, buf[pos:pos+d.bulkLen])
			d.args = append(d.args, Arg{Data: data, Source: ArgCopied})
			pos += d.bulkLen + 2
		}

		d.bulkLen = -1
		d.multibulkLen--
		d.phase = MultibulkArgHeader
	}

	if pos > 0 {
		q.Trim(pos)
	}

	if d.multibulkLen == 0 {
		d.phase = CommandReady
		return Complete, nil
	}
	return NeedMore, nil
}

// parseLen 严格的十进制解析，不接受空串、'+'、空白和多余的前导零
func parseLen(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}
	if len(b) > 1 && b[0] == '0' {
		return 0, false
	}

	var v int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		if v > (1<<63-1-int64(c-'0'))/10 {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		if v == 0 {
			return 0, false
		}
		v = -v
	}
	return v, true
}
