package datastruct

import (
	"time"

	"golang.org/x/exp/rand"
)

const DefaultDictSize = 1024

// Consumer 用于遍历的回调，返回 false 则停止遍历
type Consumer func(key string, data interface{}) bool

// Dict 抽象接口，屏蔽底层实现细节
type Dict interface {
	Get(key string) (val interface{}, exists bool)
	Len() int
	Put(key string, val interface{}) (result int)         // 对应 Redis SET
	PutIfAbsent(key string, val interface{}) (result int) // 对应 Redis SETNX
	PutIfExists(key string, val interface{}) (result int)
	Remove(key string) (result int) // 对应 Redis DEL
	Keys() []string                 // 对应 Redis KEYS *
	ForEach(consumer Consumer)      // 遍历所有数据
	RandomKey() (string, bool)      // 对应 Redis RANDOMKEY
	RandomKeys(limit int) []string  // 不重复的随机 key，用于主动过期抽样
	Clear()                         // 清空
}

type entry struct {
	val interface{}
	pos int // 在 keys 中的下标
}

// SimpleDict 单线程使用的字典
// 所有命令都在事件循环线程里执行，不需要分片和加锁。
// 额外维护一个 key 数组，随机取 key 是 O(1)
type SimpleDict struct {
	m    map[string]*entry
	keys []string
	rng  *rand.Rand
}

func MakeSimple(size int) *SimpleDict {
	return MakeSimpleWithSeed(size, uint64(time.Now().UnixNano()))
}

// MakeSimpleWithSeed 固定随机种子，测试使用
func MakeSimpleWithSeed(size int, seed uint64) *SimpleDict {
	return &SimpleDict{
		m:    make(map[string]*entry, size),
		keys: make([]string, 0, size),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (dict *SimpleDict) Get(key string) (val interface{}, exists bool) {
	e, ok := dict.m[key]
	if !ok {
		return nil, false
	}
	return e.val, true
}

func (dict *SimpleDict) Len() int {
	return len(dict.m)
}

func (dict *SimpleDict) Put(key string, val interface{}) (result int) {
	if e, ok := dict.m[key]; ok {
		e.val = val
		return 0 // 覆盖
	}
	dict.m[key] = &entry{val: val, pos: len(dict.keys)}
	dict.keys = append(dict.keys, key)
	return 1 // 新增
}

func (dict *SimpleDict) PutIfAbsent(key string, val interface{}) (result int) {
	if _, ok := dict.m[key]; ok {
		return 0 // 存在，不操作
	}
	return dict.Put(key, val)
}

func (dict *SimpleDict) PutIfExists(key string, val interface{}) (result int) {
	e, ok := dict.m[key]
	if !ok {
		return 0 // 不存在，不更新
	}
	e.val = val
	return 1
}

func (dict *SimpleDict) Remove(key string) (result int) {
	e, ok := dict.m[key]
	if !ok {
		return 0
	}
	// 用最后一个 key 填补空位
	last := len(dict.keys) - 1
	if e.pos != last {
		moved := dict.keys[last]
		dict.keys[e.pos] = moved
		dict.m[moved].pos = e.pos
	}
	dict.keys[last] = ""
	dict.keys = dict.keys[:last]
	delete(dict.m, key)
	return 1
}

func (dict *SimpleDict) Clear() {
	dict.m = make(map[string]*entry, DefaultDictSize)
	dict.keys = make([]string, 0, DefaultDictSize)
}

func (dict *SimpleDict) ForEach(consumer Consumer) {
	if dict == nil {
		return
	}
	for key, e := range dict.m {
		if !consumer(key, e.val) {
			return
		}
	}
}

func (dict *SimpleDict) Keys() []string {
	keys := make([]string, len(dict.keys))
	copy(keys, dict.keys)
	return keys
}

func (dict *SimpleDict) RandomKey() (string, bool) {
	if len(dict.keys) == 0 {
		return "", false
	}
	return dict.keys[dict.rng.Intn(len(dict.keys))], true
}

func (dict *SimpleDict) RandomKeys(limit int) []string {
	size := len(dict.keys)
	if limit >= size {
		return dict.Keys()
	}
	if limit <= 0 {
		return nil
	}
	// 对下标做部分 Fisher-Yates，只交换出前 limit 个
	idx := make(map[int]int, limit)
	result := make([]string, limit)
	for i := 0; i < limit; i++ {
		j := i + dict.rng.Intn(size-i)
		vi, ok := idx[i]
		if !ok {
			vi = i
		}
		vj, ok := idx[j]
		if !ok {
			vj = j
		}
		idx[i], idx[j] = vj, vi
		result[i] = dict.keys[vj]
	}
	return result
}
