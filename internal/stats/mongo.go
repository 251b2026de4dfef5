package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lox/blackjack/internal/game"
)

// MongoConfig locates the collection holding user documents
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore persists records as {user, stats: {win, loss, draw}} documents.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

type mongoCounters struct {
	Win  uint64 `bson:"win"`
	Loss uint64 `bson:"loss"`
	Draw uint64 `bson:"draw"`
}

type mongoDoc struct {
	User  string        `bson:"user"`
	Stats mongoCounters `bson:"stats"`
}

func (d mongoDoc) record() Record {
	return Record{User: d.User, Win: d.Stats.Win, Loss: d.Stats.Loss, Draw: d.Stats.Draw}
}

// OpenMongo creates a client for cfg. The driver connects lazily, so an
// unreachable server is reported by the first operation rather than here.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("mongo database and collection are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: timeout,
	}, nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := withTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, user string) (Record, error) {
	r, err := s.Find(ctx, user)
	if errors.Is(err, ErrNotFound) {
		return NewRecord(user), nil
	}
	if err != nil {
		return NewRecord(user), err
	}
	return r, nil
}

// Increment applies $inc with upsert, so concurrent increments for the same
// user are not lost.
func (s *MongoStore) Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	win, loss, draw := delta(outcome)
	update := bson.M{"$inc": bson.M{
		"stats.win":  int64(win),
		"stats.loss": int64(loss),
		"stats.draw": int64(draw),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"user": user}, update, opts).Decode(&doc)
	if err != nil {
		return Record{}, fmt.Errorf("increment %s: %w", user, classifyMongo(err))
	}
	return doc.record(), nil
}

func (s *MongoStore) Delete(ctx context.Context, user string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"user": user})
	if err != nil {
		return fmt.Errorf("delete %s: %w", user, classifyMongo(err))
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, user string) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"user": user}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s: %w", user, classifyMongo(err))
	}
	return doc.record(), nil
}

func (s *MongoStore) Put(ctx context.Context, record Record) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"stats": mongoCounters{
		Win:  record.Win,
		Loss: record.Loss,
		Draw: record.Draw,
	}}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"user": record.User}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s: %w", record.User, classifyMongo(err))
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", classifyMongo(err))
	}
	return n, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return classifyMongo(s.client.Ping(ctx, readpref.Primary()))
}

// classifyMongo treats every failure that did not come back as a server
// reply (selection timeouts, dial errors, network errors, deadlines) as
// ErrUnreachable.
func classifyMongo(err error) error {
	if err == nil {
		return nil
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && !mongo.IsNetworkError(err) && !mongo.IsTimeout(err) {
		return err
	}
	return Unreachable(err)
}
