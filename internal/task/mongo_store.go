package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/pkg/db"
)

// MongoStore keeps tasks in a collection with a unique index on task_id and
// a TTL index on updated_at, so finished (and abandoned) tasks age out
// without a sweeper.
type MongoStore struct {
	coll *mongo.Collection
}

type taskDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	TaskID       string             `bson:"task_id"`
	RequestBody  string             `bson:"request_body"`
	Status       model.TaskStatus   `bson:"status"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
	ErrorMessage string             `bson:"error_message,omitempty"`
	ResponseBody string             `bson:"response_body,omitempty"`
	ClaimToken   string             `bson:"claim_token,omitempty"`
}

// NewMongoStore connects to the configured collection and ensures its
// indexes.
func NewMongoStore(ctx context.Context, cfg config.TaskConfig) (*MongoStore, error) {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}

	coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = coll.Indexes().CreateMany(indexCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cfg.TTL.Seconds())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("task: mongodb ensure indexes: %w", err)
	}

	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) CreateTask(ctx context.Context, req *model.ScheduleRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("task: encode request: %w", err)
	}

	now := time.Now().UTC()
	doc := taskDoc{
		TaskID:      uuid.NewString(),
		RequestBody: string(body),
		Status:      model.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("task: insert: %w", err)
	}
	return doc.TaskID, nil
}

func (s *MongoStore) GetTask(ctx context.Context, taskID string) (*StatusResponse, error) {
	var doc taskDoc
	err := s.coll.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task: get %s: %w", taskID, err)
	}
	return statusResponse(doc.TaskID, doc.Status, doc.ResponseBody, doc.ErrorMessage)
}

// ClaimBatch uses a two-phase scheme, since UpdateMany cannot return the
// documents it touched: snapshot up to n PENDING ids, stamp them with a
// fresh claim token (the status filter in the update keeps concurrently
// claimed documents out), then re-fetch only the ids carrying our token.
func (s *MongoStore) ClaimBatch(ctx context.Context, n int) ([]string, error) {
	findOpts := options.Find().
		SetLimit(int64(n)).
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"_id": 1})

	cur, err := s.coll.Find(ctx, bson.M{"status": model.TaskPending}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("task: claim snapshot: %w", err)
	}

	var snapshot []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &snapshot); err != nil {
		return nil, fmt.Errorf("task: claim snapshot decode: %w", err)
	}
	if len(snapshot) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(snapshot))
	for i, d := range snapshot {
		ids[i] = d.ID
	}

	token := uuid.NewString()
	_, err = s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": model.TaskPending},
		bson.M{"$set": bson.M{
			"status":      model.TaskProcessing,
			"updated_at":  time.Now().UTC(),
			"claim_token": token,
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("task: claim update: %w", err)
	}

	cur, err = s.coll.Find(ctx, bson.M{"claim_token": token},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("task: claim verify: %w", err)
	}
	var claimed []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &claimed); err != nil {
		return nil, fmt.Errorf("task: claim verify decode: %w", err)
	}

	docIDs := make([]string, len(claimed))
	for i, d := range claimed {
		docIDs[i] = d.ID.Hex()
	}
	return docIDs, nil
}

func (s *MongoStore) GetByDocID(ctx context.Context, docID string) (*Task, error) {
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, fmt.Errorf("task: bad doc id %q: %w", docID, err)
	}

	var doc taskDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task: load doc %s: %w", docID, err)
	}

	return &Task{
		DocID:        doc.ID.Hex(),
		TaskID:       doc.TaskID,
		RequestBody:  doc.RequestBody,
		Status:       doc.Status,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		ErrorMessage: doc.ErrorMessage,
		ResponseBody: doc.ResponseBody,
	}, nil
}

func (s *MongoStore) CompleteTask(ctx context.Context, docID, responseBody string) error {
	return s.finish(ctx, docID, bson.M{
		"status":        model.TaskCompleted,
		"updated_at":    time.Now().UTC(),
		"response_body": responseBody,
	})
}

func (s *MongoStore) FailTask(ctx context.Context, docID, errorMessage string) error {
	return s.finish(ctx, docID, bson.M{
		"status":        model.TaskFailed,
		"updated_at":    time.Now().UTC(),
		"error_message": errorMessage,
	})
}

func (s *MongoStore) finish(ctx context.Context, docID string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return fmt.Errorf("task: bad doc id %q: %w", docID, err)
	}
	res, err := s.coll.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("task: finish doc %s: %w", docID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// statusResponse builds the public view, decoding the stored response body
// for completed tasks.
func statusResponse(taskID string, status model.TaskStatus, responseBody, errorMessage string) (*StatusResponse, error) {
	out := &StatusResponse{TaskID: taskID, Status: status, Error: errorMessage}
	if status == model.TaskCompleted && responseBody != "" {
		var resp model.ScheduleResponse
		if err := json.Unmarshal([]byte(responseBody), &resp); err != nil {
			return nil, fmt.Errorf("task: decode stored response for %s: %w", taskID, err)
		}
		out.Result = &resp
	}
	return out, nil
}
