package command

import (
	"errors"
	"strconv"
)

var errNotInteger = errors.New("value is not an integer")

// SimpleString 字符串值，能解析成整数时按整数存储
type SimpleString struct {
	// 如果 isInt=true，则 valInt 有效
	isInt  bool
	valInt int64

	// 普通字符串存这里（二进制安全）
	valRaw []byte
}

func NewStringFromBytes(b []byte) *SimpleString {
	s := &SimpleString{}
	s.Set(b)
	return s
}

func (s *SimpleString) Get() []byte {
	if s.isInt {
		return strconv.AppendInt(nil, s.valInt, 10)
	}
	return s.valRaw
}

func (s *SimpleString) Len() int {
	if s.isInt {
		return len(strconv.FormatInt(s.valInt, 10))
	}
	return len(s.valRaw)
}

func (s *SimpleString) Set(b []byte) {
	// 和 Redis 一样，只有规范形式的整数才按整数编码，"007" 仍然是字符串
	if i, err := strconv.ParseInt(string(b), 10, 64); err == nil && strconv.FormatInt(i, 10) == string(b) {
		s.isInt = true
		s.valInt = i
		s.valRaw = nil
		return
	}

	s.isInt = false
	s.valRaw = append([]byte(nil), b...)
}

// IncrBy 自增，溢出或者不是整数时返回错误
func (s *SimpleString) IncrBy(delta int64) (int64, error) {
	if !s.isInt {
		return 0, errNotInteger
	}
	next := s.valInt + delta
	if (delta > 0 && next < s.valInt) || (delta < 0 && next > s.valInt) {
		return 0, errors.New("increment or decrement would overflow")
	}
	s.valInt = next
	return s.valInt, nil
}

// Append 追加内容并返回新长度
func (s *SimpleString) Append(b []byte) int {
	cur := s.Get()
	next := make([]byte, 0, len(cur)+len(b))
	next = append(append(next, cur...), b...)
	s.Set(next)
	return len(next)
}
