package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

const (
	accountsCollection = "accounts"
	systemAccountEmail = "system@jobharvest.internal"
)

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client   *mongo.Client
	jobs     *mongo.Collection
	accounts *mongo.Collection
	logger   types.Logger
}

// NewMongoStore connects to MongoDB and prepares the collections and
// indexes.
func NewMongoStore(ctx context.Context, cfg *config.Config) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Mongo.Database)
	s := &MongoStore{
		client:   client,
		jobs:     db.Collection(cfg.Mongo.Collection),
		accounts: db.Collection(accountsCollection),
		logger:   logging.GetGlobalLogger(),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		return nil, err
	}

	s.logger.Info("Connected to MongoDB", map[string]interface{}{
		"database":   cfg.Mongo.Database,
		"collection": cfg.Mongo.Collection,
	})
	return s, nil
}

// ensureIndexes creates the dedup and lookup indexes. The compound unique
// index is what makes first-write-wins atomic.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "external_job_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "application_deadline", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}
	return nil
}

// InsertJob persists a job, mapping duplicate key violations onto
// utils.ErrDuplicateJob.
func (s *MongoStore) InsertJob(ctx context.Context, job *models.PersistedJob) error {
	_, err := s.jobs.InsertOne(ctx, job)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.ErrDuplicateJob
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// FindJob returns the stored job for the dedup key, or (nil, nil) when it
// does not exist.
func (s *MongoStore) FindJob(ctx context.Context, source, externalJobID string) (*models.PersistedJob, error) {
	filter := bson.M{"source": source, "external_job_id": externalJobID}

	var job models.PersistedJob
	err := s.jobs.FindOne(ctx, filter).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

// CountSourceJobsSince counts jobs persisted for a source since the instant.
func (s *MongoStore) CountSourceJobsSince(ctx context.Context, source string, since time.Time) (int, error) {
	filter := bson.M{
		"source":     source,
		"created_at": bson.M{"$gte": since},
	}
	n, err := s.jobs.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs for %s: %w", source, err)
	}
	return int(n), nil
}

// CountJobsSince counts jobs persisted across all sources since the instant.
func (s *MongoStore) CountJobsSince(ctx context.Context, since time.Time) (int, error) {
	filter := bson.M{"created_at": bson.M{"$gte": since}}
	n, err := s.jobs.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(n), nil
}

// DeleteExpiredJobs removes jobs whose deadline has passed.
func (s *MongoStore) DeleteExpiredJobs(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"application_deadline": bson.M{"$ne": nil, "$lt": now}}

	res, err := s.jobs.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}
	if res.DeletedCount > 0 {
		s.logger.Info("Removed expired jobs", map[string]interface{}{
			"count": res.DeletedCount,
		})
	}
	return res.DeletedCount, nil
}

// UpdateJobStatus sets the lifecycle status of a stored job.
func (s *MongoStore) UpdateJobStatus(ctx context.Context, source, externalJobID string, status models.JobStatus) error {
	filter := bson.M{"source": source, "external_job_id": externalJobID}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}

	res, err := s.jobs.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("job %s/%s not found", source, externalJobID)
	}
	return nil
}

// EnsureSystemAccount upserts the employer account that owns scraped
// postings and returns its ID.
func (s *MongoStore) EnsureSystemAccount(ctx context.Context) (string, error) {
	filter := bson.M{"email": systemAccountEmail}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"email":      systemAccountEmail,
			"name":       "Job Harvest System",
			"role":       "system",
			"created_at": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var account struct {
		ID string `bson:"_id"`
	}
	err := s.accounts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&account)
	if err != nil {
		return "", fmt.Errorf("failed to ensure system account: %w", err)
	}
	return account.ID, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
