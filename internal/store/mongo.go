package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
)

const mongoCollection = "rooms"

type Mongo struct {
	client *mongo.Client
	rooms  *mongo.Collection
	log    *slog.Logger
}

// NewMongo connects, verifies connectivity and ensures the unique roomId index
func NewMongo(ctx context.Context, cfg app.Config, log *slog.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	m := &Mongo{
		client: client,
		rooms:  client.Database(cfg.MongoDB).Collection(mongoCollection),
		log:    log,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	name, err := m.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	m.log.Info("mongo.index.ready", "index", name)
	return nil
}

func (m *Mongo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}

func (m *Mongo) Ping(ctx context.Context) error { return m.client.Ping(ctx, nil) }

func (m *Mongo) FindByRoomID(ctx context.Context, id string) (Room, error) {
	var r Room
	err := m.rooms.FindOne(ctx, bson.M{"roomId": id}).Decode(&r)
	return r, mongoErr(err)
}

func (m *Mongo) Insert(ctx context.Context, r Room) error {
	_, err := m.rooms.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (m *Mongo) DeleteByRoomID(ctx context.Context, id string) (Room, error) {
	var r Room
	err := m.rooms.FindOneAndDelete(ctx, bson.M{"roomId": id}).Decode(&r)
	return r, mongoErr(err)
}

// ListAll returns rooms oldest first
func (m *Mongo) ListAll(ctx context.Context) ([]Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "roomId", Value: 1}})
	cur, err := m.rooms.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	out := []Room{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) SetParticipants(ctx context.Context, id string, n int) error {
	res, err := m.rooms.UpdateOne(ctx,
		bson.M{"roomId": id},
		bson.M{"$set": bson.M{"participants": n}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
