package datastruct

import (
	"fmt"
	"sort"
	"testing"
)

func TestSimpleDict(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		dict := MakeSimple(16)

		// Put
		result := dict.Put("key1", "value1")
		if result != 1 {
			t.Errorf("Put should return 1 for new key, got %d", result)
		}
		if dict.Len() != 1 {
			t.Errorf("Len should be 1, got %d", dict.Len())
		}

		// Get
		val, exists := dict.Get("key1")
		if !exists || val != "value1" {
			t.Errorf("Get failed: exists=%v, val=%v", exists, val)
		}

		// Put (update)
		result = dict.Put("key1", "value2")
		if result != 0 {
			t.Errorf("Put should return 0 for update, got %d", result)
		}
		if dict.Len() != 1 {
			t.Errorf("Len should remain 1 after update, got %d", dict.Len())
		}

		// Remove
		result = dict.Remove("key1")
		if result != 1 {
			t.Errorf("Remove should return 1, got %d", result)
		}
		if dict.Len() != 0 {
			t.Errorf("Len should be 0 after remove, got %d", dict.Len())
		}
		if dict.Remove("key1") != 0 {
			t.Error("second Remove should return 0")
		}

		// Get non-existing
		_, exists = dict.Get("key1")
		if exists {
			t.Error("Get should return false for non-existing key")
		}
	})

	t.Run("PutIfAbsent and PutIfExists", func(t *testing.T) {
		dict := MakeSimple(16)

		if result := dict.PutIfAbsent("k1", "v1"); result != 1 || dict.Len() != 1 {
			t.Errorf("PutIfAbsent failed: result=%d, len=%d", result, dict.Len())
		}
		if result := dict.PutIfAbsent("k1", "v2"); result != 0 || dict.Len() != 1 {
			t.Errorf("PutIfAbsent should not update: result=%d, len=%d", result, dict.Len())
		}
		if result := dict.PutIfExists("k1", "v3"); result != 1 || dict.Len() != 1 {
			t.Errorf("PutIfExists failed: result=%d, len=%d", result, dict.Len())
		}
		if v, _ := dict.Get("k1"); v != "v3" {
			t.Errorf("PutIfExists did not update value: %v", v)
		}
		if result := dict.PutIfExists("k2", "v4"); result != 0 || dict.Len() != 1 {
			t.Errorf("PutIfExists should not create: result=%d, len=%d", result, dict.Len())
		}
	})

	t.Run("Keys and ForEach", func(t *testing.T) {
		dict := MakeSimple(16)
		dict.Put("a", 1)
		dict.Put("b", 2)
		dict.Put("c", 3)

		keys := dict.Keys()
		sort.Strings(keys)
		if fmt.Sprint(keys) != "[a b c]" {
			t.Errorf("Keys() = %v", keys)
		}

		var n int
		dict.ForEach(func(key string, val interface{}) bool {
			n++
			return true
		})
		if n != 3 {
			t.Errorf("ForEach should iterate 3 items, got %d", n)
		}

		n = 0
		dict.ForEach(func(string, interface{}) bool {
			n++
			return false
		})
		if n != 1 {
			t.Errorf("ForEach should stop after consumer returns false, got %d calls", n)
		}
	})

	t.Run("RandomKeys", func(t *testing.T) {
		dict := MakeSimpleWithSeed(16, 42)
		for i := 0; i < 10; i++ {
			dict.Put(fmt.Sprintf("key%d", i), i)
		}

		// Request more than available
		if random := dict.RandomKeys(15); len(random) != 10 {
			t.Errorf("RandomKeys should return all keys when limit > size, got %d", len(random))
		}

		for round := 0; round < 50; round++ {
			random := dict.RandomKeys(5)
			if len(random) != 5 {
				t.Fatalf("RandomKeys should return 5 keys, got %d", len(random))
			}
			seen := make(map[string]bool)
			for _, k := range random {
				if seen[k] {
					t.Fatalf("Duplicate key in RandomKeys: %s", k)
				}
				if _, ok := dict.Get(k); !ok {
					t.Fatalf("RandomKeys returned unknown key %s", k)
				}
				seen[k] = true
			}
		}
	})

	t.Run("RandomKey covers all keys", func(t *testing.T) {
		dict := MakeSimpleWithSeed(16, 7)
		for i := 0; i < 4; i++ {
			dict.Put(fmt.Sprintf("k%d", i), i)
		}
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			k, ok := dict.RandomKey()
			if !ok {
				t.Fatal("RandomKey on non-empty dict returned false")
			}
			seen[k] = true
		}
		if len(seen) != 4 {
			t.Errorf("RandomKey only produced %v", seen)
		}
	})

	t.Run("index stays consistent after removals", func(t *testing.T) {
		dict := MakeSimpleWithSeed(16, 1)
		for i := 0; i < 100; i++ {
			dict.Put(fmt.Sprintf("k%d", i), i)
		}
		for i := 0; i < 100; i += 3 {
			dict.Remove(fmt.Sprintf("k%d", i))
		}
		if len(dict.keys) != dict.Len() {
			t.Fatalf("keys index has %d entries, dict has %d", len(dict.keys), dict.Len())
		}
		for i, k := range dict.keys {
			if dict.m[k].pos != i {
				t.Fatalf("key %s recorded at %d, stored at %d", k, dict.m[k].pos, i)
			}
		}
	})

	t.Run("Clear", func(t *testing.T) {
		dict := MakeSimple(16)
		dict.Put("k1", "v1")
		dict.Put("k2", "v2")

		dict.Clear()
		if dict.Len() != 0 {
			t.Errorf("Clear should set len to 0, got %d", dict.Len())
		}
		if _, exists := dict.Get("k1"); exists {
			t.Error("Key should not exist after Clear")
		}
		if _, ok := dict.RandomKey(); ok {
			t.Error("RandomKey should fail after Clear")
		}
	})

	t.Run("empty dict", func(t *testing.T) {
		dict := MakeSimple(16)

		if dict.Len() != 0 {
			t.Errorf("Empty dict len should be 0, got %d", dict.Len())
		}
		if keys := dict.Keys(); len(keys) != 0 {
			t.Errorf("Empty dict Keys should be empty, got %d", len(keys))
		}
		if random := dict.RandomKeys(5); len(random) != 0 {
			t.Errorf("Empty dict RandomKeys should be empty, got %d", len(random))
		}
		dict.ForEach(func(key string, val interface{}) bool {
			t.Error("ForEach should not be called on empty dict")
			return true
		})
	})
}
