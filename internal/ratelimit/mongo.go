package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RateLimitCollection 限流記錄集合名稱
const RateLimitCollection = "rate_limits"

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Count     int       `bson:"count"`
	ResetTime time.Time `bson:"reset_at"`
}

// MongoStore 以 MongoDB 文件保存計數的共用限流儲存
type MongoStore struct {
	coll    *mongo.Collection
	cfg     Config
	now     Clock
	janitor *janitor
}

// NewMongoStore 創建 MongoDB 限流器並建立 TTL 索引
func NewMongoStore(ctx context.Context, db *mongo.Database, cfg Config) (*MongoStore, error) {
	s := &MongoStore{
		coll: db.Collection(RateLimitCollection),
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	s.janitor = startJanitor(s.Name(), s, s.cfg.CleanupInterval)
	return s, nil
}

// EnsureIndexes 建立 reset_at 的 TTL 索引，讓 MongoDB 也能背景刪除過期記錄
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "reset_at", Value: 1}},
		Options: options.Index().SetName("reset_at_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create rate limit index: %w", err)
	}
	return nil
}

// Name 後端名稱
func (s *MongoStore) Name() string { return "mongo" }

// Allow 檢查並消耗一次配額。每一步都是單文件原子操作：
// 窗口內遞增、過期重置、首次插入；插入衝突時重試一次遞增。
func (s *MongoStore) Allow(ctx context.Context, identifier string) (Decision, error) {
	key := hashedKey(s.cfg.KeyPrefix, identifier)

	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()

		rec, err := s.increment(ctx, key, now)
		if err != nil {
			return Decision{}, err
		}
		if rec != nil {
			return s.decision(true, rec, now), nil
		}

		rec, err = s.reset(ctx, key, now)
		if err != nil {
			return Decision{}, err
		}
		if rec != nil {
			return s.decision(true, rec, now), nil
		}

		fresh := &mongoRecord{ID: key, Count: 1, ResetTime: now.Add(s.cfg.Window)}
		_, err = s.coll.InsertOne(ctx, fresh)
		if err == nil {
			return s.decision(true, fresh, now), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return Decision{}, fmt.Errorf("insert rate limit record: %w", err)
		}

		// 文件存在且未過期：可能已達上限，或是併發插入
		var existing mongoRecord
		err = s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&existing)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return Decision{}, fmt.Errorf("find rate limit record: %w", err)
		}
		if err == nil && existing.Count >= s.cfg.Max && !now.After(existing.ResetTime) {
			return s.decision(false, &existing, now), nil
		}
	}

	return Decision{}, fmt.Errorf("rate limit record for %s kept changing", key)
}

// increment 窗口內且未達上限時遞增
func (s *MongoStore) increment(ctx context.Context, key string, now time.Time) (*mongoRecord, error) {
	filter := bson.D{
		{Key: "_id", Value: key},
		{Key: "reset_at", Value: bson.D{{Key: "$gte", Value: now}}},
		{Key: "count", Value: bson.D{{Key: "$lt", Value: s.cfg.Max}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "count", Value: 1}}}}
	return s.findOneAndUpdate(ctx, filter, update)
}

// reset 窗口過期時重新計數
func (s *MongoStore) reset(ctx context.Context, key string, now time.Time) (*mongoRecord, error) {
	filter := bson.D{
		{Key: "_id", Value: key},
		{Key: "reset_at", Value: bson.D{{Key: "$lt", Value: now}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "count", Value: 1},
		{Key: "reset_at", Value: now.Add(s.cfg.Window)},
	}}}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, filter, update bson.D) (*mongoRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rec mongoRecord
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update rate limit record: %w", err)
	}
	return &rec, nil
}

func (s *MongoStore) decision(allowed bool, rec *mongoRecord, now time.Time) Decision {
	return Decision{
		Allowed:    allowed,
		Count:      rec.Count,
		Limit:      s.cfg.Max,
		ResetAt:    rec.ResetTime,
		RetryAfter: remaining(rec.ResetTime, now),
	}
}

// Sweep 刪除已過期的記錄
func (s *MongoStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "reset_at", Value: bson.D{{Key: "$lt", Value: s.now()}}}})
	if err != nil {
		return 0, fmt.Errorf("sweep rate limit records: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Close 停止定期清理；連線由 driver 套件負責關閉
func (s *MongoStore) Close() error {
	if s.janitor != nil {
		s.janitor.close()
	}
	return nil
}
