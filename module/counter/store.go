package counter

import "context"

// Store 计数器记录的持久化后端。
//
// 实现必须保证 CompareAndSwap 对同一 name 是原子的：只有当前 last_seq 仍等于 prev
// 时才写入 next，否则返回 (false, nil) 且不做任何修改。记录不存在等价于 last_seq = 0。
// 写入采用合并语义，记录上的其他字段保持不变。
type Store interface {
	Load(ctx context.Context, name string) (int64, error)
	CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error)
}
