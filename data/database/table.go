package database

import (
	"AltarProject/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

type Table interface {
	GetTableName() string
}

// Collection 按模型的表名取集合
func Collection(db *mongo.Database, t Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}

// DBProvider 每次使用时取当前的 *mongo.Database；service/mgo.TryGetDB 满足该签名，掉线重连后自动换成新连接
type DBProvider func() (*mongo.Database, bool)

// StaticDB 固定使用一个 *mongo.Database
func StaticDB(db *mongo.Database) DBProvider {
	return func() (*mongo.Database, bool) { return db, db != nil }
}

var ErrMongoNotReady = errs.New("mongo not ready")

// CollectionFrom 从 provider 取集合，未就绪时返回 ErrMongoNotReady
func CollectionFrom(p DBProvider, name string) (*mongo.Collection, error) {
	db, ok := p()
	if !ok {
		return nil, ErrMongoNotReady.Wrap()
	}
	return db.Collection(name), nil
}
