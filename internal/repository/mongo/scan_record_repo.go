// Package mongo stores scan records as MongoDB documents. The extraction
// result is kept as an embedded document so it can be queried in place.
package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formscan/internal/config"
	"formscan/internal/domain"
	"formscan/internal/port"
)

const connectTimeout = 10 * time.Second

// recordDocument is the stored shape. IDs are kept as canonical strings.
type recordDocument struct {
	ID                string    `bson:"_id"`
	FormType          string    `bson:"formType"`
	FileName          string    `bson:"fileName"`
	ImageKey          string    `bson:"imageKey"`
	ModelUsed         string    `bson:"modelUsed"`
	OverallConfidence int       `bson:"overallConfidence"`
	Result            bson.M    `bson:"result"`
	CreatedAt         time.Time `bson:"createdAt"`
}

func toDocument(rec *domain.ScanRecord) (*recordDocument, error) {
	var result bson.M
	if err := bson.UnmarshalExtJSON(rec.Result, false, &result); err != nil {
		return nil, fmt.Errorf("converting result of %s: %w", rec.ID, err)
	}
	return &recordDocument{
		ID:                rec.ID.String(),
		FormType:          string(rec.FormType),
		FileName:          rec.FileName,
		ImageKey:          rec.ImageKey,
		ModelUsed:         rec.ModelUsed,
		OverallConfidence: rec.OverallConfidence,
		Result:            result,
		CreatedAt:         rec.CreatedAt.UTC(),
	}, nil
}

func (d *recordDocument) record() (domain.ScanRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.ScanRecord{}, fmt.Errorf("parsing record id %q: %w", d.ID, err)
	}
	result, err := bson.MarshalExtJSON(d.Result, false, false)
	if err != nil {
		return domain.ScanRecord{}, fmt.Errorf("encoding result of %s: %w", d.ID, err)
	}
	return domain.ScanRecord{
		ID:                id,
		FormType:          domain.FormType(d.FormType),
		FileName:          d.FileName,
		ImageKey:          d.ImageKey,
		ModelUsed:         d.ModelUsed,
		OverallConfidence: d.OverallConfidence,
		Result:            json.RawMessage(result),
		CreatedAt:         d.CreatedAt.UTC(),
	}, nil
}

// Connect opens a client for cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	log.Printf("mongo.Connect: connected to database %s", cfg.Database)
	return client, nil
}

type scanRecordRepo struct {
	coll *mongo.Collection
}

// NewScanRecordRepo creates a new MongoDB-backed RecordRepository over
// coll. The returned value also implements port.Pinger.
func NewScanRecordRepo(coll *mongo.Collection) port.RecordRepository {
	return &scanRecordRepo{coll: coll}
}

func (r *scanRecordRepo) Save(ctx context.Context, rec *domain.ScanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	doc, err := toDocument(rec)
	if err != nil {
		return fmt.Errorf("scanRecordRepo.Save: %w", err)
	}
	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("scanRecordRepo.Save: %w", err)
	}
	return nil
}

func (r *scanRecordRepo) List(ctx context.Context) ([]domain.ScanRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("scanRecordRepo.List: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("scanRecordRepo.List decode: %w", err)
	}
	recs := make([]domain.ScanRecord, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].record()
		if err != nil {
			log.Printf("scanRecordRepo.List: skipping unreadable document: %v", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *scanRecordRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return 0, fmt.Errorf("scanRecordRepo.DeleteMany: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (r *scanRecordRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
