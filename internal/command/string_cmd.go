package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
)

var (
	errWrongType   = resp.MakeErrReply("WRONGTYPE Operation against a key holding the wrong kind of value")
	errNotIntReply = resp.MakeErrReply("ERR value is not an integer or out of range")
	errSyntax      = resp.MakeErrReply("ERR syntax error")
)

func getString(db types.Database, key string) (*SimpleString, bool, resp.Reply) {
	entity, exists := db.GetEntity(key)
	if !exists {
		return nil, false, nil
	}
	str, ok := entity.Data.(*SimpleString)
	if !ok {
		return nil, false, errWrongType
	}
	return str, true, nil
}

// SET key value [EX seconds|PX milliseconds] [NX|XX]
func execSet(db types.Database, args [][]byte) resp.Reply {
	key := string(args[0])
	value := args[1]

	var (
		useNX, useXX bool
		ttl          time.Duration
	)

	// 1. 解析参数
	for i := 2; i < len(args); i++ {
		option := strings.ToLower(string(args[i]))
		switch option {
		case "ex", "px":
			if ttl > 0 || i+1 >= len(args) {
				return errSyntax
			}
			n, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil {
				return errNotIntReply
			}
			if n <= 0 {
				return resp.MakeErrReply("ERR invalid expire time in 'set' command")
			}
			unit := time.Second
			if option == "px" {
				unit = time.Millisecond
			}
			ttl = time.Duration(n) * unit
			i++
		case "nx":
			useNX = true
		case "xx":
			useXX = true
		default:
			return errSyntax
		}
	}
	if useNX && useXX {
		return errSyntax
	}

	// 2. NX/XX 语义判断（在写之前）
	_, exists := db.GetEntity(key)
	if (useNX && exists) || (useXX && !exists) {
		return resp.MakeNullBulkReply()
	}

	// 3. 写入数据（覆盖写会清理旧 TTL）
	db.PutEntity(key, &types.DataEntity{Data: NewStringFromBytes(value)})
	db.DeleteTTL(key)

	// 4. 设置过期时间
	if ttl > 0 {
		db.SetExpire(key, time.Now().Add(ttl))
	}
	return resp.MakeOkReply()
}

func execSetNX(db types.Database, args [][]byte) resp.Reply {
	key := string(args[0])
	if db.PutIfAbsent(key, &types.DataEntity{Data: NewStringFromBytes(args[1])}) == 0 {
		return resp.MakeIntReply(0)
	}
	db.DeleteTTL(key)
	return resp.MakeIntReply(1)
}

func execGet(db types.Database, args [][]byte) resp.Reply {
	str, exists, errReply := getString(db, string(args[0]))
	if errReply != nil {
		return errReply
	}
	if !exists {
		return resp.MakeNullBulkReply()
	}
	return resp.MakeBulkReply(str.Get())
}

func execMSet(db types.Database, args [][]byte) resp.Reply {
	if len(args)%2 != 0 {
		return resp.MakeArgNumErrReply("mset")
	}

	for i := 0; i < len(args); i += 2 {
		key := string(args[i])
		db.PutEntity(key, &types.DataEntity{Data: NewStringFromBytes(args[i+1])})
		db.DeleteTTL(key)
	}
	return resp.MakeOkReply()
}

func execMGet(db types.Database, args [][]byte) resp.Reply {
	result := make([][]byte, len(args))
	for i, arg := range args {
		// 类型不对的 key 返回 nil
		if str, exists, _ := getString(db, string(arg)); exists {
			result[i] = str.Get()
		}
	}
	return resp.MakeMultiBulkReply(result)
}

func execIncr(db types.Database, args [][]byte) resp.Reply {
	return incrBy(db, string(args[0]), 1)
}

func execDecr(db types.Database, args [][]byte) resp.Reply {
	return incrBy(db, string(args[0]), -1)
}

func execIncrBy(db types.Database, args [][]byte) resp.Reply {
	delta, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return errNotIntReply
	}
	return incrBy(db, string(args[0]), delta)
}

func execDecrBy(db types.Database, args [][]byte) resp.Reply {
	delta, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil || delta == -delta && delta != 0 {
		return errNotIntReply
	}
	return incrBy(db, string(args[0]), -delta)
}

func incrBy(db types.Database, key string, delta int64) resp.Reply {
	str, exists, errReply := getString(db, key)
	if errReply != nil {
		return errReply
	}

	// 不存在则当作 0
	if !exists {
		str = NewStringFromBytes([]byte("0"))
		if _, err := str.IncrBy(delta); err != nil {
			return errNotIntReply
		}
		db.PutEntity(key, &types.DataEntity{Data: str})
		return resp.MakeIntReply(delta)
	}

	val, err := str.IncrBy(delta)
	if err != nil {
		if err == errNotInteger {
			return errNotIntReply
		}
		return resp.MakeErrReply("ERR " + err.Error())
	}
	return resp.MakeIntReply(val)
}

func execAppend(db types.Database, args [][]byte) resp.Reply {
	key := string(args[0])

	str, exists, errReply := getString(db, key)
	if errReply != nil {
		return errReply
	}
	if !exists {
		db.PutEntity(key, &types.DataEntity{Data: NewStringFromBytes(args[1])})
		return resp.MakeIntReply(int64(len(args[1])))
	}
	return resp.MakeIntReply(int64(str.Append(args[1])))
}

func execStrLen(db types.Database, args [][]byte) resp.Reply {
	str, exists, errReply := getString(db, string(args[0]))
	if errReply != nil {
		return errReply
	}
	if !exists {
		return resp.MakeIntReply(0)
	}
	return resp.MakeIntReply(int64(str.Len()))
}
