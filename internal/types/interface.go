package types

import "time"

// Database 命令执行时看到的单个 DB
type Database interface {
	// GetEntity 获取数据实体，已过期的 key 会被顺带删除
	GetEntity(key string) (*DataEntity, bool)

	// PutEntity 将数据实体存入数据库
	PutEntity(key string, entity *DataEntity) int

	// PutIfExists 仅当键存在时更新
	PutIfExists(key string, entity *DataEntity) int

	// PutIfAbsent 仅当键不存在时插入
	PutIfAbsent(key string, entity *DataEntity) int

	// Remove 删除指定键
	Remove(key string) bool

	// SetExpire 设置键的过期时间
	SetExpire(key string, expireTime time.Time)

	// GetExpireTime 获取键的过期时间
	GetExpireTime(key string) (time.Time, bool)

	// DeleteTTL 删除键的过期时间
	DeleteTTL(key string)

	// Len 当前的 key 数量
	Len() int

	// RandomKey 随机返回一个没有过期的 key
	RandomKey() (string, bool)

	// Flush 清空
	Flush()
}
