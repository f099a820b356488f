// Package resultstore persists processed replies and in-flight claims keyed
// by request fingerprint.
package resultstore

import (
	"context"
	"time"

	"sravz-backend/pkg/apperrors"
	"sravz-backend/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "nsq_message_cache"

// Entry statuses. IN_PROGRESS blocks re-entry for the same key; DONE entries
// younger than the TTL are served from cache.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// ResultTTL is how long a DONE entry counts as a cache hit.
const ResultTTL = 24 * time.Hour

// Entry is one cached result row.
type Entry struct {
	Key     string    `bson:"key"`
	Message string    `bson:"message"`
	Status  string    `bson:"status"`
	Date    time.Time `bson:"date"`
}

// Fresh reports whether the entry is a usable cache hit at the given time.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Status == StatusDone && now.Sub(e.Date) < ttl
}

// Store is the Mongo-backed result store.
type Store struct {
	collection *mongo.Collection
}

// New builds a Store over the fixed result-cache collection.
func New(db *database.MongoDB) *Store {
	return &Store{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique key index the claim path relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable, "failed to create result cache index", err)
	}
	return nil
}

// Find returns the entry for a fingerprint, or nil when absent.
func (s *Store) Find(ctx context.Context, key string) (*Entry, error) {
	var entry Entry
	err := s.collection.FindOne(ctx, bson.M{"key": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "result cache lookup failed", err)
	}
	return &entry, nil
}

// Upsert replaces or inserts the entry by key.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"key": entry.Key},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable, "result cache upsert failed", err)
	}
	return nil
}

// Status returns the current status for a key, or "" when absent.
func (s *Store) Status(ctx context.Context, key string) (string, error) {
	entry, err := s.Find(ctx, key)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", nil
	}
	return entry.Status, nil
}

// Claim atomically marks a key IN_PROGRESS. It succeeds only when no entry
// exists or the existing entry is not already IN_PROGRESS, which upgrades the
// in-flight gate to a cluster-wide conditional write. Returns false when
// another worker holds the claim.
func (s *Store) Claim(ctx context.Context, key, messageJSON string, now time.Time) (bool, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"key": key, "status": bson.M{"$ne": StatusInProgress}},
		bson.M{"$set": bson.M{
			"key":     key,
			"message": messageJSON,
			"status":  StatusInProgress,
			"date":    now.UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The upsert races the unique key index when an IN_PROGRESS entry
		// already exists; the duplicate key error means someone else holds it.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.StoreUnavailable, "result cache claim failed", err)
	}
	return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
}
