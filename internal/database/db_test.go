package database

import (
	"testing"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
)

func cmd(ss ...string) types.CmdLine {
	out := make(types.CmdLine, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestDB(t *testing.T) {
	db := MakeDB(0)

	tests := []struct {
		name string
		cmd  types.CmdLine
		want string
	}{
		{"set", cmd("SET", "k", "v"), "+OK\r\n"},
		{"get", cmd("get", "k"), "$1\r\nv\r\n"},
		{"incr string", cmd("incr", "k"), "-ERR value is not an integer or out of range\r\n"},
		{"incr", cmd("incr", "n"), ":1\r\n"},
		{"exists", cmd("exists", "k", "n", "x"), ":2\r\n"},
		{"dbsize", cmd("dbsize"), ":2\r\n"},
		{"unknown", cmd("FOO", "bar"), "-ERR unknown command 'FOO'\r\n"},
		{"arity", cmd("get"), "-ERR wrong number of arguments for 'get' command\r\n"},
		{"del", cmd("del", "k", "n"), ":2\r\n"},
		{"get missing", cmd("get", "k"), "$-1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(db.Exec(tt.cmd).ToBytes()); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDBLazyExpire(t *testing.T) {
	db := MakeDB(0)
	now := time.Unix(1000, 0)
	db.now = func() time.Time { return now }

	db.Exec(cmd("set", "k", "v"))
	db.SetExpire("k", now.Add(time.Second))

	if _, ok := db.GetEntity("k"); !ok {
		t.Fatal("key should still exist")
	}
	now = now.Add(2 * time.Second)
	if _, ok := db.GetEntity("k"); ok {
		t.Fatal("key should be expired")
	}
	if db.Len() != 0 {
		t.Errorf("expired key not removed, len = %d", db.Len())
	}
	if _, ok := db.GetExpireTime("k"); ok {
		t.Error("ttl should be removed with the key")
	}
}

func TestDBPutIfAbsentExpired(t *testing.T) {
	db := MakeDB(0)
	now := time.Unix(1000, 0)
	db.now = func() time.Time { return now }

	db.PutEntity("k", &types.DataEntity{Data: "old"})
	db.SetExpire("k", now.Add(-time.Second))

	if db.PutIfAbsent("k", &types.DataEntity{Data: "new"}) != 1 {
		t.Fatal("expired key should count as absent")
	}
	if db.PutIfExists("missing", &types.DataEntity{Data: "x"}) != 0 {
		t.Fatal("PutIfExists on missing key should be a no-op")
	}
}

func TestActiveExpire(t *testing.T) {
	db := MakeDB(0)
	now := time.Unix(1000, 0)

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		db.PutEntity(key, &types.DataEntity{Data: i})
		if i%2 == 0 {
			db.SetExpire(key, now.Add(-time.Second))
		} else {
			db.SetExpire(key, now.Add(time.Hour))
		}
	}
	db.PutEntity("forever", &types.DataEntity{Data: 1})

	// 带 TTL 的 key 不超过抽样数，一轮就能全部检查到
	if n := db.ActiveExpire(now); n != 5 {
		t.Errorf("expired %d keys, want 5", n)
	}
	if db.Len() != 6 {
		t.Errorf("len = %d, want 6", db.Len())
	}
	if n := db.ActiveExpire(now); n != 0 {
		t.Errorf("second pass expired %d keys", n)
	}
}

func TestDBRandomKeySkipsExpired(t *testing.T) {
	db := MakeDB(0)
	now := time.Unix(1000, 0)
	db.now = func() time.Time { return now }

	if _, ok := db.RandomKey(); ok {
		t.Fatal("empty db has no random key")
	}
	db.PutEntity("dead", &types.DataEntity{Data: 1})
	db.SetExpire("dead", now.Add(-time.Second))
	db.PutEntity("alive", &types.DataEntity{Data: 1})

	key, ok := db.RandomKey()
	if !ok || key != "alive" {
		t.Errorf("RandomKey() = %q, %v", key, ok)
	}
}

func TestDBFlush(t *testing.T) {
	db := MakeDB(0)
	db.Exec(cmd("set", "a", "1", "ex", "100"))
	db.Exec(cmd("set", "b", "2"))

	if reply := db.Exec(cmd("flushdb")); resp.IsErrorReply(reply) {
		t.Fatalf("flushdb: %q", reply.ToBytes())
	}
	if db.Len() != 0 {
		t.Errorf("len after flush = %d", db.Len())
	}
	if db.ttlMap.Len() != 0 {
		t.Error("ttl map should be empty")
	}
}
