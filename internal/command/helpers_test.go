package command

import (
	"testing"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/internal/types"
)

// MockDB 最简单的 types.Database 实现，只给命令测试用
type MockDB struct {
	data map[string]*types.DataEntity
	ttl  map[string]time.Time
}

func NewMockDB() *MockDB {
	return &MockDB{
		data: make(map[string]*types.DataEntity),
		ttl:  make(map[string]time.Time),
	}
}

func (m *MockDB) GetEntity(key string) (*types.DataEntity, bool) {
	// 检查是否过期
	if expireTime, ok := m.ttl[key]; ok && time.Now().After(expireTime) {
		delete(m.data, key)
		delete(m.ttl, key)
		return nil, false
	}

	entity, ok := m.data[key]
	return entity, ok
}

func (m *MockDB) PutEntity(key string, entity *types.DataEntity) int {
	m.data[key] = entity
	return 1
}

func (m *MockDB) PutIfExists(key string, entity *types.DataEntity) int {
	if _, ok := m.data[key]; !ok {
		return 0
	}
	m.data[key] = entity
	return 1
}

func (m *MockDB) PutIfAbsent(key string, entity *types.DataEntity) int {
	if _, ok := m.GetEntity(key); ok {
		return 0
	}
	m.data[key] = entity
	return 1
}

func (m *MockDB) Remove(key string) bool {
	_, ok := m.data[key]
	delete(m.data, key)
	delete(m.ttl, key)
	return ok
}

func (m *MockDB) SetExpire(key string, expireTime time.Time) {
	m.ttl[key] = expireTime
}

func (m *MockDB) GetExpireTime(key string) (time.Time, bool) {
	expire, ok := m.ttl[key]
	return expire, ok
}

func (m *MockDB) DeleteTTL(key string) {
	delete(m.ttl, key)
}

func (m *MockDB) Len() int {
	return len(m.data)
}

func (m *MockDB) RandomKey() (string, bool) {
	for k := range m.data {
		return k, true
	}
	return "", false
}

func (m *MockDB) Flush() {
	clear(m.data)
	clear(m.ttl)
}

func args(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func getIntValue(t *testing.T, reply resp.Reply) int64 {
	t.Helper()
	intReply, ok := reply.(*resp.IntReply)
	if !ok {
		t.Fatalf("reply type is not intVal: %q", reply.ToBytes())
	}
	return intReply.IntVal
}

func getBulkValue(t *testing.T, reply resp.Reply) []byte {
	t.Helper()
	bulkReply, ok := reply.(*resp.BulkReply)
	if !ok {
		t.Fatalf("reply type is not BulkValue: %q", reply.ToBytes())
	}
	return bulkReply.Arg
}

func getErrorString(t *testing.T, reply resp.Reply) string {
	t.Helper()
	bytes := reply.ToBytes()
	if len(bytes) == 0 || bytes[0] != '-' {
		t.Fatalf("not an error reply: %q", string(bytes))
	}
	return string(bytes[1 : len(bytes)-2])
}

func isOKReply(reply resp.Reply) bool {
	return string(reply.ToBytes()) == "+OK\r\n"
}

// 断言函数
func assertEqualInt(t *testing.T, reply resp.Reply, expected int64) {
	t.Helper()
	if actual := getIntValue(t, reply); actual != expected {
		t.Errorf("expected %d, got %d", expected, actual)
	}
}

func assertEqualBulk(t *testing.T, reply resp.Reply, expected []byte) {
	t.Helper()
	actual := getBulkValue(t, reply)
	if expected == nil {
		if actual != nil {
			t.Errorf("expected null, got %q", actual)
		}
		return
	}
	if actual == nil {
		t.Errorf("expected %q, got null", expected)
	} else if string(actual) != string(expected) {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}

func assertEqualMultiBulk(t *testing.T, reply resp.Reply, expected [][]byte) {
	t.Helper()
	multi, ok := reply.(*resp.MultiBulkReply)
	if !ok {
		t.Fatalf("reply type is not MultiBulk: %q", reply.ToBytes())
	}
	if len(multi.Args) != len(expected) {
		t.Fatalf("length mismatch: expected %d, got %d", len(expected), len(multi.Args))
	}
	for i := range expected {
		if expected[i] == nil {
			if multi.Args[i] != nil {
				t.Errorf("at %d: expected nil, got %q", i, multi.Args[i])
			}
		} else if string(multi.Args[i]) != string(expected[i]) {
			t.Errorf("at %d: expected %q, got %q", i, expected[i], multi.Args[i])
		}
	}
}
