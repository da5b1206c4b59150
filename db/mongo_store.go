package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRecord keeps the document as its JSON text so every backend stores identical bytes
type mongoRecord struct {
	ID   string `bson:"_id"`
	Data string `bson:"data"`
}

// MongoStore keeps records in one MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongoStore establishes a connection and verifies it with a ping
func ConnectMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", database).Str("collection", collection).Msg("connected to MongoDB")
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment from MongoDB: %w", err)
	}
	return []byte(rec.Data), nil
}

func (s *MongoStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoRecord{ID: key, Data: string(value)},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save assessment to MongoDB: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]Record, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments in MongoDB: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var rec mongoRecord
		if err := cursor.Decode(&rec); err != nil {
			log.Debug().Err(err).Msg("skipping undecodable mongo record")
			continue
		}
		records = append(records, Record{Key: rec.ID, Value: []byte(rec.Data)})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}
	return records, nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, fmt.Errorf("failed to delete assessment from MongoDB: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
