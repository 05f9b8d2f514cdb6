package command

func init() {
	// ========================
	// Key Commands
	// ========================
	RegisterCommand(&Command{
		Name:     "del",
		Arity:    -2,
		Executor: execDel,
	})
	RegisterCommand(&Command{
		Name:     "exists",
		Arity:    -2,
		Executor: execExists,
	})
	RegisterCommand(&Command{
		Name:     "expire",
		Arity:    3,
		Executor: execExpire,
	})
	RegisterCommand(&Command{
		Name:     "persist",
		Arity:    2,
		Executor: execPersist,
	})
	RegisterCommand(&Command{
		Name:     "ttl",
		Arity:    2,
		Executor: execTTL,
	})
	RegisterCommand(&Command{
		Name:     "pttl",
		Arity:    2,
		Executor: execPTTL,
	})
	RegisterCommand(&Command{
		Name:     "randomkey",
		Arity:    1,
		Executor: execRandomKey,
	})
	RegisterCommand(&Command{
		Name:     "dbsize",
		Arity:    1,
		Executor: execDBSize,
	})
	RegisterCommand(&Command{
		Name:     "flushdb",
		Arity:    1,
		Executor: execFlushDB,
	})

	// ========================
	// String Commands
	// ========================
	RegisterCommand(&Command{
		Name:     "set",
		Arity:    -3, // set key value [options]
		Executor: execSet,
	})
	RegisterCommand(&Command{
		Name:     "setnx",
		Arity:    3, // setnx key value
		Executor: execSetNX,
	})
	RegisterCommand(&Command{
		Name:     "get",
		Arity:    2, // get key
		Executor: execGet,
	})
	RegisterCommand(&Command{
		Name:     "mset",
		Arity:    -3,
		Executor: execMSet,
	})
	RegisterCommand(&Command{
		Name:     "mget",
		Arity:    -2,
		Executor: execMGet,
	})
	RegisterCommand(&Command{
		Name:     "strlen",
		Arity:    2, // strlen key
		Executor: execStrLen,
	})
	RegisterCommand(&Command{
		Name:     "append",
		Arity:    3, // append key value
		Executor: execAppend,
	})
	RegisterCommand(&Command{
		Name:     "incr",
		Arity:    2, // incr key
		Executor: execIncr,
	})
	RegisterCommand(&Command{
		Name:     "decr",
		Arity:    2, // decr key
		Executor: execDecr,
	})
	RegisterCommand(&Command{
		Name:     "incrby",
		Arity:    3, // incrby key increment
		Executor: execIncrBy,
	})
	RegisterCommand(&Command{
		Name:     "decrby",
		Arity:    3, // decrby key decrement
		Executor: execDecrBy,
	})
}
