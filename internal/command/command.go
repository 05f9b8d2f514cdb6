package command

import (
	"strings"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
)

// ExecFunc 定义每个 Redis 命令的执行函数签名，args 不包含命令名
type ExecFunc func(db types.Database, args [][]byte) resp.Reply

// Command 定义了一个命令的元数据
type Command struct {
	Name     string   // 命令名称
	Executor ExecFunc // 执行函数
	Arity    int      // 参数数量限制 (例如: SET key val 是 3，如果允许不定参数用负数表示)
}

// 全局命令注册表，只在 init 阶段写入
var cmdTable = make(map[string]*Command)

func RegisterCommand(cmd *Command) {
	name := strings.ToLower(cmd.Name)
	cmdTable[name] = &Command{
		Name:     name,
		Executor: cmd.Executor,
		Arity:    cmd.Arity,
	}
}

// GetCmd 按小写命令名查表
func GetCmd(name string) (*Command, bool) {
	cmd, ok := cmdTable[name]
	return cmd, ok
}

// ValidateArity 校验参数个数，cmdLine 包含命令名
func ValidateArity(arity int, cmdLine [][]byte) bool {
	n := len(cmdLine)

	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}
