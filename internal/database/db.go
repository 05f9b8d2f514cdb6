package database

import (
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/command"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
	"github.com/kgpp34/Redis-Source-Learning/pkg/datastruct"
)

// 主动过期每轮抽样的 key 数（Redis 默认是 20）
const activeExpireSample = 20

// DB 代表每一个单独的数据库 (如 db0, db1...)
type DB struct {
	index  int             // 数据库编号
	data   datastruct.Dict // 核心数据存储 (Key -> *types.DataEntity)
	ttlMap datastruct.Dict // 过期时间存储 (Key -> time.Time) - 对标 Redis 的 expires

	now func() time.Time
}

var _ types.Database = (*DB)(nil)

func MakeDB(index int) *DB {
	return &DB{
		index:  index,
		data:   datastruct.MakeSimple(datastruct.DefaultDictSize),
		ttlMap: datastruct.MakeSimple(datastruct.DefaultDictSize),
		now:    time.Now,
	}
}

func (db *DB) Index() int {
	return db.index
}

// GetEntity 从 dict 获取 types.DataEntity
func (db *DB) GetEntity(key string) (*types.DataEntity, bool) {
	raw, ok := db.data.Get(key)
	if !ok {
		return nil, false
	}
	// 惰性过期
	if db.isExpired(key, db.now()) {
		db.Remove(key)
		return nil, false
	}
	entity, _ := raw.(*types.DataEntity)
	return entity, true
}

// PutEntity 将 types.DataEntity 存入 dict
func (db *DB) PutEntity(key string, entity *types.DataEntity) int {
	return db.data.Put(key, entity)
}

// PutIfExists 仅当存在时更新
func (db *DB) PutIfExists(key string, entity *types.DataEntity) int {
	if _, ok := db.GetEntity(key); !ok {
		return 0
	}
	return db.data.PutIfExists(key, entity)
}

// PutIfAbsent 仅当不存在时写入 (SETNX)，已过期的 key 视为不存在
func (db *DB) PutIfAbsent(key string, entity *types.DataEntity) int {
	if _, ok := db.GetEntity(key); ok {
		return 0
	}
	return db.data.PutIfAbsent(key, entity)
}

// Remove 删除 Key
func (db *DB) Remove(key string) bool {
	db.ttlMap.Remove(key) // 别忘了删除 TTL
	return db.data.Remove(key) == 1
}

func (db *DB) SetExpire(key string, expireTime time.Time) {
	db.ttlMap.Put(key, expireTime)
}

func (db *DB) GetExpireTime(key string) (time.Time, bool) {
	raw, ok := db.ttlMap.Get(key)
	if !ok {
		return time.Time{}, false
	}
	expireAt, ok := raw.(time.Time)
	return expireAt, ok
}

func (db *DB) DeleteTTL(key string) {
	db.ttlMap.Remove(key)
}

func (db *DB) Len() int {
	return db.data.Len()
}

// RandomKey 最多尝试几次，跳过已经过期的 key
func (db *DB) RandomKey() (string, bool) {
	for i := 0; i < 16 && db.data.Len() > 0; i++ {
		key, ok := db.data.RandomKey()
		if !ok {
			return "", false
		}
		if _, ok := db.GetEntity(key); ok {
			return key, true
		}
	}
	return "", false
}

func (db *DB) Flush() {
	db.data.Clear()
	db.ttlMap.Clear()
}

// Exec 在单个 DB 中执行命令
// 实际逻辑是：根据 command name 查表找到对应的 ExecFunc 并调用
func (db *DB) Exec(cmdLine types.CmdLine) resp.Reply {
	cmdName := cmdLine.Name()

	cmd, ok := command.GetCmd(cmdName)
	if !ok {
		return resp.MakeUnknownCmdErrReply(string(cmdLine[0]))
	}
	if !command.ValidateArity(cmd.Arity, cmdLine) {
		return resp.MakeArgNumErrReply(cmdName)
	}
	return cmd.Executor(db, cmdLine[1:])
}

func (db *DB) isExpired(key string, now time.Time) bool {
	expireAt, ok := db.GetExpireTime(key)
	return ok && now.After(expireAt)
}

// ActiveExpire 随机抽样一批带 TTL 的 key，删除其中已经过期的，返回删除的数量
func (db *DB) ActiveExpire(now time.Time) int {
	keys := db.ttlMap.RandomKeys(activeExpireSample)

	expired := 0
	for _, key := range keys {
		if db.isExpired(key, now) {
			db.Remove(key)
			expired++
		}
	}
	return expired
}
