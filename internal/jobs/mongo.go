package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

const mongoConnectTimeout = 5 * time.Second

// MongoLedger stores jobs as documents keyed by their id field.
type MongoLedger struct {
	client *mongo.Client
	coll   *mongo.Collection
	opts   ledgerOptions
}

var _ Ledger = (*MongoLedger)(nil)

// NewMongoLedger connects to cfg.MongoURL, verifies the server with a ping and
// ensures a unique index on id.
func NewMongoLedger(ctx context.Context, cfg config.JobsConfig, opts ...Option) (*MongoLedger, error) {
	if cfg.MongoURL == "" {
		return nil, errors.New("mongo url is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURL).
		SetServerSelectionTimeout(mongoConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create jobs index: %w", err)
	}
	return &MongoLedger{client: client, coll: coll, opts: buildOptions(opts)}, nil
}

func (m *MongoLedger) Backend() string { return "mongo" }

func (m *MongoLedger) CreateJob(ctx context.Context, id, sourceType string) (*models.Job, error) {
	job := newJob(id, sourceType, m.opts.now())
	if _, err := m.coll.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("job %s already exists", id)
		}
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	return job, nil
}

// UpdateJob applies upd with a compare-and-set on status and updated_at, so a
// concurrent writer makes this call re-read instead of overwriting.
func (m *MongoLedger) UpdateJob(ctx context.Context, id string, upd models.JobUpdate) (*models.Job, error) {
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := m.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		next := cloneJob(current)
		if err := apply(next, upd, m.opts.now()); err != nil {
			return nil, err
		}
		filter := bson.M{
			"id":         id,
			"status":     current.Status,
			"updated_at": current.UpdatedAt,
		}
		set := bson.M{"$set": bson.M{
			"status":     next.Status,
			"stats":      next.Stats,
			"error":      next.Error,
			"updated_at": next.UpdatedAt,
		}}
		res, err := m.coll.UpdateOne(ctx, filter, set)
		if err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("%w: job %s changed concurrently", models.ErrInvalidTransition, id)
}

func (m *MongoLedger) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := m.coll.FindOne(ctx, bson.M{"id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

func (m *MongoLedger) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
