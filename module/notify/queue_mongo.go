package notify

import (
	"AltarProject/data/database"
	"AltarProject/module/notify/model"
	"AltarProject/tools/errs"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoQueue 写入 notification_queue 集合（outbox），由独立的推送 worker 轮询 status=pending
type MongoQueue struct {
	db   database.DBProvider
	name string
}

func NewMongoQueue(db database.DBProvider) *MongoQueue {
	return &MongoQueue{db: db, name: (&model.Notification{}).GetTableName()}
}

func (q *MongoQueue) Enqueue(ctx context.Context, n *model.Notification) error {
	coll, err := database.CollectionFrom(q.db, q.name)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, n); err != nil {
		// 同一 ID 重复入队视为成功
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return errs.WrapMsg(err, "insert notification", "id", n.ID)
	}
	return nil
}
