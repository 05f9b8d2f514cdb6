package persistant

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

const readChunk = 16 * 1024

var (
	ErrTruncated = errors.New("truncated command at end of file")
	ErrDeferred  = errors.New("command deferred during preload")
)

// Stats 一次预加载的统计
type Stats struct {
	Commands int // 执行的命令数
	Writes   int // 其中的写命令数
	Errors   int // 返回错误回复的命令数
}

// PreloadFile 打开命令文件并回放
func PreloadFile(path string, c *connection.Connection, d connection.Dispatcher, log hclog.Logger) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open preload file: %w", err)
	}
	defer file.Close()

	stats, err := Preload(file, c, d, log)
	if err != nil {
		return stats, fmt.Errorf("preload %s: %w", path, err)
	}
	return stats, nil
}

// Preload 把 r 中的请求通过伪连接逐条解析并派发
// 文件可以是 RESP 数组也可以是内联命令，和网络上的请求走同一个解码器。
// c 通常是 RoleScript 伪连接，回复会被收集起来用于检查错误
func Preload(r io.Reader, c *connection.Connection, d connection.Dispatcher, log hclog.Logger) (Stats, error) {
	log = logger.OrNop(log)

	var stats Stats
	q := c.QueryBuf()
	dec := c.Decoder()
	for {
		_, readErr := q.ReadFrom(r, readChunk)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return stats, fmt.Errorf("read: %w", readErr)
		}

		for q.Len() > 0 {
			st, err := dec.Decode(q)
			if err != nil {
				return stats, err
			}
			if st == resp.NeedMore {
				break
			}

			cmdLine := types.CmdLine(dec.CmdLine())
			if len(cmdLine) == 0 {
				dec.Reset()
				continue
			}
			// quit 会让脚本连接丢弃之后所有的回复
			if cmdLine.Name() == "quit" {
				log.Debug("skipping quit in preload")
				dec.Reset()
				continue
			}

			if d.Dispatch(c, cmdLine) == connection.StatusDeferred {
				return stats, fmt.Errorf("%w: %s", ErrDeferred, cmdLine.Name())
			}
			dec.Reset()

			stats.Commands++
			if cmdLine.IsWrite() {
				stats.Writes++
			}
			if reply := c.TakeReplies(); len(reply) > 0 && reply[0] == '-' {
				stats.Errors++
				log.Warn("preload command failed", "cmd", cmdLine.Name(),
					"error", string(bytes.TrimSpace(reply[1:])))
			}
		}

		if errors.Is(readErr, io.EOF) {
			if q.Len() > 0 || dec.Phase() != resp.AwaitingType {
				return stats, ErrTruncated
			}
			return stats, nil
		}
	}
}
