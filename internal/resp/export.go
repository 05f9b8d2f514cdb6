package resp

import "strconv"

// EncodeCommand 把参数列表编码成 multibulk 请求: *<argc>\r\n$<len>\r\n<arg>\r\n...
func EncodeCommand(args [][]byte) []byte {
	size := 16
	for _, arg := range args {
		size += len(arg) + 16
	}
	buf := make([]byte, 0, size)

	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, CRLF...)
	for _, arg := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(arg)), 10)
		buf = append(buf, CRLF...)
		buf = append(buf, arg...)
		buf = append(buf, CRLF...)
	}
	return buf
}

// EncodeStrings 是 EncodeCommand 的字符串版本，主要给 cli 和测试用
func EncodeStrings(args ...string) []byte {
	bs := make([][]byte, len(args))
	for i, a := range args {
		bs[i] = []byte(a)
	}
	return EncodeCommand(bs)
}
