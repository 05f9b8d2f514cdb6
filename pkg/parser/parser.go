package parser

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

var (
	ErrUnknownType     = errors.New("protocol error: unknown RESP type")
	ErrInvalidBulkLen  = errors.New("protocol error: invalid bulk length")
	ErrInvalidArrayLen = errors.New("protocol error: invalid array length")
	ErrLineEnding      = errors.New("protocol error: invalid line ending")
)

// RespError 服务端返回的错误回复
type RespError struct {
	Message string
}

func (e RespError) Error() string {
	return e.Message
}

// Parser 客户端侧的回复解析器，cli 和端到端测试使用
// 返回值: string / RespError / int64 / []byte / []interface{} / nil
type Parser struct {
	r *bufio.Reader
}

func NewParser(reader io.Reader) *Parser {
	return &Parser{
		r: bufio.NewReader(reader),
	}
}

func (p *Parser) Parse() (interface{}, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch b {
	case '+':
		return p.readLine()
	case '-':
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return RespError{Message: line}, nil
	case ':':
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(line, 10, 64)
	case '$':
		return p.parseBulkString()
	case '*':
		return p.parseArray()
	default:
		return nil, ErrUnknownType
	}
}

func (p *Parser) parseBulkString() (interface{}, error) {
	length, err := p.readLength(ErrInvalidBulkLen)
	if err != nil {
		return nil, err
	}
	// NULL bulk string
	if length < 0 {
		return nil, nil
	}

	buf := make([]byte, length+2)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	if buf[length] != '\r' || buf[length+1] != '\n' {
		return nil, ErrLineEnding
	}
	return buf[:length], nil
}

func (p *Parser) parseArray() (interface{}, error) {
	n, err := p.readLength(ErrInvalidArrayLen)
	if err != nil {
		return nil, err
	}
	// NULL array
	if n < 0 {
		return nil, nil
	}

	result := make([]interface{}, n)
	for i := 0; i < n; i++ {
		elem, err := p.Parse()
		if err != nil {
			return nil, err
		}
		result[i] = elem
	}
	return result, nil
}

func (p *Parser) readLength(invalid error) (int, error) {
	line, err := p.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < -1 {
		return 0, invalid
	}
	return n, nil
}

func (p *Parser) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrLineEnding
	}
	return line[:len(line)-2], nil
}
