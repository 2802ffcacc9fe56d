package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"redgen/config"
)

// kvDocument is one key. The value is kept as a JSON string so records of any
// vintage round-trip byte for byte.
type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores keys as documents of one collection. OnChange uses change streams and
// therefore needs a replica set.
type Mongo struct {
	col    *mongo.Collection
	client *mongo.Client
}

// NewMongo wraps an existing database handle. client may be nil; Close then leaves the
// connection open.
func NewMongo(client *mongo.Client, d *mongo.Database, collection string) *Mongo {
	if collection == "" {
		collection = "kv"
	}
	return &Mongo{col: d.Collection(collection), client: client}
}

func (m *Mongo) Get(ctx context.Context, keys ...Key) (Values, error) {
	out := make(Values, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k)
	}
	cur, err := m.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc kvDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		out[Key(doc.Key)] = json.RawMessage(doc.Value)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return out, nil
}

// Set upserts every key. Callers write one key per logical mutation, so a per-document
// replace is enough.
func (m *Mongo) Set(ctx context.Context, values Values) error {
	now := time.Now()
	for k, v := range values {
		doc := kvDocument{Key: string(k), Value: string(v), UpdatedAt: now}
		opts := options.Replace().SetUpsert(true)
		if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
			return fmt.Errorf("mongo replace %s: %w", k, err)
		}
	}
	return nil
}

func (m *Mongo) OnChange(ctx context.Context, listener ChangeListener) (func(), error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "replace", "update"}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cs, err := m.col.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mongo watch: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cs.Close(context.Background())
		for cs.Next(watchCtx) {
			var ev struct {
				FullDocument *kvDocument `bson:"fullDocument"`
			}
			if err := cs.Decode(&ev); err != nil || ev.FullDocument == nil {
				config.Log.Warnf("store: drop undecodable change event: %v", err)
				continue
			}
			listener(Change{Key: Key(ev.FullDocument.Key), New: json.RawMessage(ev.FullDocument.Value)})
		}
		if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
			config.Log.Errorf("store: change stream ended: %v", err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
