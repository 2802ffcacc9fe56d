package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"redgen/config"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init initializes the global Mongo client and database from cfg.
func Init(ctx context.Context, cfg config.MongoConfig) error {
	var initErr error
	clientOnce.Do(func() {
		cl, d, err := Connect(ctx, cfg)
		if err != nil {
			initErr = err
			return
		}
		client, db = cl, d
		config.Log.Infof("MongoDB connected and indexes ensured (db=%s)", d.Name())
	})
	return initErr
}

// Connect dials, pings and prepares the key-value collection.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	uri := cfg.URI
	if uri == "" {
		// Fallback for local docker-compose default
		uri = "mongodb://localhost:27017/?replicaSet=rs0"
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "redgen"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	// Ping to verify connection
	if err := cl.Ping(ctx, readpref.Primary()); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, nil, err
	}
	d := cl.Database(dbName)
	if err := ensureIndexes(ctx, d, cfg.Collection); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, nil, err
	}
	return cl, d, nil
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

func ensureIndexes(ctx context.Context, d *mongo.Database, collection string) error {
	if collection == "" {
		collection = "kv"
	}
	// kv: updated_at desc, for inspecting recent writes
	_, err := d.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("idx_updated_at_desc"),
	})
	return err
}
