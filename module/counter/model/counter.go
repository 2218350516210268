package model

import "time"

// Counter 某个命名序列的发号水位；只由 counter.Allocator 通过 CAS 修改，从不删除。
// 记录不存在时视为 LastSeq = 0。
type Counter struct {
	Name    string `bson:"_id" json:"name"`          // 计数器名，如 server_group_seq
	LastSeq int64  `bson:"last_seq" json:"last_seq"` // 最后一次发出的序号

	CreateTime time.Time `bson:"create_time,omitempty" json:"create_time,omitempty"`
	UpdateTime time.Time `bson:"update_time,omitempty" json:"update_time,omitempty"`
}

const (
	CounterFieldName       = "_id"
	CounterFieldLastSeq    = "last_seq"
	CounterFieldCreateTime = "create_time"
	CounterFieldUpdateTime = "update_time"
)

func (c *Counter) GetTableName() string {
	return "counters"
}
