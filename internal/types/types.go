package types

import "strings"

// CmdLine 是命令行的别名，例如: set key val -> [][]byte
type CmdLine [][]byte

var writeCommands = map[string]struct{}{
	// string
	"set":    {},
	"setnx":  {},
	"mset":   {},
	"append": {},
	"incr":   {},
	"incrby": {},
	"decr":   {},
	"decrby": {},

	// key
	"del":     {},
	"expire":  {},
	"persist": {},

	// db
	"flushdb": {},
}

func (c CmdLine) IsWrite() bool {
	if len(c) == 0 {
		return false
	}
	cmd := strings.ToLower(string(c[0]))
	_, ok := writeCommands[cmd]
	return ok
}

// Name 小写的命令名
func (c CmdLine) Name() string {
	if len(c) == 0 {
		return ""
	}
	return strings.ToLower(string(c[0]))
}

// DataEntity 代表数据库中的数据实体
type DataEntity struct {
	Data interface{} // 实际数据，目前只有 string
}
