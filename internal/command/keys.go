package command

import (
	"math"
	"strconv"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
)

func execDel(db types.Database, args [][]byte) resp.Reply {
	deleted := 0

	for _, arg := range args {
		key := string(arg)

		// GetEntity 会清理已经过期的 key，过期 key 不计数
		if _, exists := db.GetEntity(key); exists {
			db.Remove(key)
			deleted++
		}
	}

	return resp.MakeIntReply(int64(deleted))
}

func execExists(db types.Database, args [][]byte) resp.Reply {
	n := 0
	for _, arg := range args {
		if _, exists := db.GetEntity(string(arg)); exists {
			n++
		}
	}
	return resp.MakeIntReply(int64(n))
}

func execExpire(db types.Database, args [][]byte) resp.Reply {
	key := string(args[0])
	seconds, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return resp.MakeErrReply("ERR invalid expire time")
	}
	if seconds > math.MaxInt64/int64(time.Second) {
		return resp.MakeErrReply("ERR invalid expire time in 'expire' command")
	}

	if _, exists := db.GetEntity(key); !exists {
		return resp.MakeIntReply(0)
	}

	if seconds <= 0 {
		db.Remove(key)
		return resp.MakeIntReply(1)
	}

	db.SetExpire(key, time.Now().Add(time.Duration(seconds)*time.Second))
	return resp.MakeIntReply(1)
}

func execPersist(db types.Database, args [][]byte) resp.Reply {
	key := string(args[0])
	if _, exists := db.GetEntity(key); !exists {
		return resp.MakeIntReply(0)
	}
	if _, ok := db.GetExpireTime(key); !ok {
		return resp.MakeIntReply(0)
	}
	db.DeleteTTL(key)
	return resp.MakeIntReply(1)
}

// TTL key: -2 不存在，-1 没有过期时间
func execTTL(db types.Database, args [][]byte) resp.Reply {
	return ttlReply(db, string(args[0]), time.Second)
}

func execPTTL(db types.Database, args [][]byte) resp.Reply {
	return ttlReply(db, string(args[0]), time.Millisecond)
}

func ttlReply(db types.Database, key string, unit time.Duration) resp.Reply {
	if _, exists := db.GetEntity(key); !exists {
		return resp.MakeIntReply(-2)
	}
	expireAt, ok := db.GetExpireTime(key)
	if !ok {
		return resp.MakeIntReply(-1)
	}
	left := time.Until(expireAt)
	if left < 0 {
		left = 0
	}
	// 四舍五入到 unit
	return resp.MakeIntReply(int64((left + unit/2) / unit))
}

func execRandomKey(db types.Database, _ [][]byte) resp.Reply {
	key, ok := db.RandomKey()
	if !ok {
		return resp.MakeNullBulkReply()
	}
	return resp.MakeBulkReply([]byte(key))
}

func execDBSize(db types.Database, _ [][]byte) resp.Reply {
	return resp.MakeIntReply(int64(db.Len()))
}

func execFlushDB(db types.Database, _ [][]byte) resp.Reply {
	db.Flush()
	return resp.MakeOkReply()
}
