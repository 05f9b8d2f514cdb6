package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options 日志配置
type Options struct {
	Level  string // trace|debug|info|warn|error
	JSON   bool
	Output io.Writer
}

// ParseLevel 解析日志级别，空串视为 info
func ParseLevel(s string) (hclog.Level, error) {
	if s == "" {
		return hclog.Info, nil
	}
	lvl := hclog.LevelFromString(s)
	if lvl == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New 创建根 logger，各子系统通过 Named 派生自己的 logger
func New(opts Options) (hclog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "goredis",
		Level:      lvl,
		JSONFormat: opts.JSON,
		Output:     out,
	}), nil
}

// OrNop 调用方没有传 logger 时使用空 logger
func OrNop(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
