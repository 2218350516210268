package counter

import (
	"AltarProject/data/database"
	"AltarProject/module/counter/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore 计数器集合里每个计数器一条文档：{_id: name, last_seq: n}
type MongoStore struct {
	db   database.DBProvider
	name string
}

// NewMongoStore collection 为空时使用 model.Counter 的表名 counters
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return NewMongoStoreFrom(database.StaticDB(db), collection)
}

// NewMongoStoreFrom 配合 service/mgo 的自动重连使用：NewMongoStoreFrom(mgo.TryGetDB, "")
func NewMongoStoreFrom(db database.DBProvider, collection string) *MongoStore {
	if collection == "" {
		collection = (&model.Counter{}).GetTableName()
	}
	return &MongoStore{db: db, name: collection}
}

func (s *MongoStore) Load(ctx context.Context, name string) (int64, error) {
	coll, err := database.CollectionFrom(s.db, s.name)
	if err != nil {
		return 0, err
	}
	var out struct {
		LastSeq int64 `bson:"last_seq"`
	}
	err = coll.FindOne(ctx,
		bson.M{model.CounterFieldName: name},
		options.FindOne().SetProjection(bson.M{model.CounterFieldLastSeq: 1}),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil // 不存在时视为0
	}
	if err != nil {
		return 0, err
	}
	return out.LastSeq, nil
}

// CompareAndSwap 以 last_seq 为条件更新；首次发号时 upsert，撞上唯一 _id 说明别人先建好了
func (s *MongoStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	coll, err := database.CollectionFrom(s.db, s.name)
	if err != nil {
		return false, err
	}
	now := time.Now()
	update := bson.M{
		"$set":         bson.M{model.CounterFieldLastSeq: next, model.CounterFieldUpdateTime: now},
		"$setOnInsert": bson.M{model.CounterFieldCreateTime: now},
	}

	if prev == 0 {
		filter := bson.M{
			model.CounterFieldName: name,
			"$or": bson.A{
				bson.M{model.CounterFieldLastSeq: int64(0)},
				bson.M{model.CounterFieldLastSeq: bson.M{"$exists": false}},
			},
		}
		res, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return res.MatchedCount == 1 || res.UpsertedCount == 1, nil
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{model.CounterFieldName: name, model.CounterFieldLastSeq: prev},
		update,
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
