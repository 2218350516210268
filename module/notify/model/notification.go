package model

import "time"

const (
	SourceQueue  = "queue"  // admin_enqueueNotification
	SourceManual = "manual" // admin_manualSendNotification

	StatusPending = "pending"
)

// Notification 一条待投递的通知；由队列的消费方负责真正推送（推送本身不在本服务内）
type Notification struct {
	ID        string         `bson:"_id" json:"id"`
	Title     string         `bson:"title,omitempty" json:"title,omitempty"`
	Body      string         `bson:"body,omitempty" json:"body,omitempty"`
	Audience  string         `bson:"audience" json:"audience"` // all / group:<id> / user:<uid>
	Channels  []string       `bson:"channels,omitempty" json:"channels,omitempty"`
	Data      map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	Source    string         `bson:"source" json:"source"`
	Procedure string         `bson:"procedure" json:"procedure"`
	RequestID string         `bson:"request_id,omitempty" json:"requestId,omitempty"`
	Status    string         `bson:"status" json:"status"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
}

func (n *Notification) GetTableName() string {
	return "notification_queue"
}
