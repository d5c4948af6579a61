package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/fsmkit"
)

// MongoStore implements Store on top of a MongoDB collection. Snapshots are
// stored as one document per machine, keyed by _id.
type MongoStore struct {
	coll *mongo.Collection
}

type mongoSnapshot struct {
	ID      string         `bson:"_id"`
	State   string         `bson:"state"`
	Context map[string]any `bson:"context,omitempty"`
	TakenAt time.Time      `bson:"taken_at"`
}

// NewMongoStore creates a MongoDB-backed snapshot store using the given
// collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Save persists a snapshot, overwriting any existing document with the same ID.
func (m *MongoStore) Save(ctx context.Context, snap fsmkit.Snapshot) error {
	if snap.ID == "" {
		return ErrInvalidSnapshot
	}

	doc := mongoSnapshot{
		ID:      snap.ID,
		State:   string(snap.State),
		Context: snap.Context,
		TakenAt: snap.TakenAt,
	}
	_, err := m.coll.ReplaceOne(ctx,
		bson.M{"_id": snap.ID}, doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load retrieves a snapshot by machine ID.
func (m *MongoStore) Load(ctx context.Context, id string) (fsmkit.Snapshot, error) {
	var doc mongoSnapshot
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fsmkit.Snapshot{}, ErrSnapshotNotFound
		}
		return fsmkit.Snapshot{}, fmt.Errorf("find snapshot %s: %w", id, err)
	}

	return fsmkit.Snapshot{
		ID:      doc.ID,
		State:   fsmkit.StateID(doc.State),
		Context: fsmkit.Context(doc.Context),
		TakenAt: doc.TakenAt,
	}, nil
}

// Delete removes a snapshot by machine ID.
func (m *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}
