package database

import (
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

// StandaloneDatabase 持有所有分库，同时是服务器的命令派发入口
type StandaloneDatabase struct {
	dbs    []*DB
	dirty  uint64 // 成功执行的写命令数
	logger hclog.Logger
}

var _ connection.Dispatcher = (*StandaloneDatabase)(nil)

func NewStandaloneDatabase(dbNum int, log hclog.Logger) *StandaloneDatabase {
	if dbNum <= 0 {
		dbNum = 16
	}
	database := &StandaloneDatabase{
		dbs:    make([]*DB, dbNum),
		logger: logger.OrNop(log),
	}
	for i := range database.dbs {
		database.dbs[i] = MakeDB(i)
	}
	return database
}

// Dispatch 执行一条命令并把回复写进连接，命令都是同步完成的
func (mdb *StandaloneDatabase) Dispatch(c *connection.Connection, args [][]byte) connection.Status {
	reply := mdb.Exec(c, args)
	if reply != nil {
		c.SendReply(reply)
	}
	return connection.StatusOK
}

// Exec 顶层执行入口
func (mdb *StandaloneDatabase) Exec(c *connection.Connection, args [][]byte) resp.Reply {
	cmdLine := types.CmdLine(args)
	if mdb.logger.IsTrace() {
		mdb.logger.Trace("exec", "id", c.ID(), "role", c.Role(), "cmd", string(resp.JoinArgs(args)))
	}

	// 1. 连接层面的命令在这里拦截
	switch cmdLine.Name() {
	case "ping":
		return execPing(args)
	case "echo":
		if len(args) != 2 {
			return resp.MakeArgNumErrReply("echo")
		}
		return resp.MakeBulkReply(args[1])
	case "quit":
		c.SendReply(resp.MakeOkReply())
		c.SetCloseAfterReply()
		return nil
	case "select":
		return mdb.execSelect(c, args)
	}

	// 2. 路由到当前客户端选中的 DB
	dbIndex := c.GetDBIndex()
	if dbIndex < 0 || dbIndex >= len(mdb.dbs) {
		return resp.MakeErrReply("ERR DB index is out of range")
	}
	reply := mdb.dbs[dbIndex].Exec(cmdLine)
	if cmdLine.IsWrite() && !resp.IsErrorReply(reply) {
		mdb.dirty++
	}
	return reply
}

func execPing(args [][]byte) resp.Reply {
	switch len(args) {
	case 1:
		return resp.PongReply
	case 2:
		return resp.MakeBulkReply(args[1])
	default:
		return resp.MakeArgNumErrReply("ping")
	}
}

// execSelect 处理 SELECT 命令
func (mdb *StandaloneDatabase) execSelect(c *connection.Connection, args [][]byte) resp.Reply {
	if len(args) != 2 {
		return resp.MakeArgNumErrReply("select")
	}

	index, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return resp.MakeErrReply("ERR value is not an integer or out of range")
	}
	if index >= len(mdb.dbs) || index < 0 {
		return resp.MakeErrReply("ERR DB index is out of range")
	}

	// 修改 Connection 的状态
	c.SelectDB(index)
	return resp.MakeOkReply()
}

// Cron 每个 tick 对所有库做一轮主动过期
func (mdb *StandaloneDatabase) Cron(now time.Time) {
	for _, db := range mdb.dbs {
		if db.ttlMap.Len() == 0 {
			continue
		}
		if n := db.ActiveExpire(now); n > 0 {
			mdb.logger.Trace("active expire", "db", db.index, "expired", n)
		}
	}
}

// Dirty 自启动以来成功执行的写命令数
func (mdb *StandaloneDatabase) Dirty() uint64 {
	return mdb.dirty
}

// Keys 所有库的 key 总数
func (mdb *StandaloneDatabase) Keys() int {
	total := 0
	for _, db := range mdb.dbs {
		total += db.Len()
	}
	return total
}

func (mdb *StandaloneDatabase) DB(index int) *DB {
	return mdb.dbs[index]
}
