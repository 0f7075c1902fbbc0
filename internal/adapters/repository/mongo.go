package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/lapprice/internal/domain/model"
)

// Default MongoDB source settings.
const (
	defaultSelectionTimeout = 10 * time.Second
	defaultBatchSize        = 500
)

// MongoSource reads every document of one collection. The client is owned
// by the caller; Close is a no-op unless the source dialed it itself.
type MongoSource struct {
	client           *mongo.Client
	owned            bool
	database         string
	collection       string
	selectionTimeout time.Duration
	batchSize        int32
}

// NewMongoSource uses an existing client.
func NewMongoSource(client *mongo.Client, database, collection string, opts ...MongoOption) *MongoSource {
	s := &MongoSource{
		client:           client,
		database:         database,
		collection:       collection,
		selectionTimeout: defaultSelectionTimeout,
		batchSize:        defaultBatchSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DialMongoSource connects to uri and returns a source that owns the client.
func DialMongoSource(ctx context.Context, uri, database, collection string, opts ...MongoOption) (*MongoSource, error) {
	s := NewMongoSource(nil, database, collection, opts...)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(s.selectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrStoreUnavailable, err)
	}
	s.client, s.owned = client, true
	return s, nil
}

// Name implements Source.
func (s *MongoSource) Name() string { return "mongo" }

// Fetch implements Source.
func (s *MongoSource) Fetch(ctx context.Context) (*model.RawTable, error) {
	coll := s.client.Database(s.database).Collection(s.collection)
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetBatchSize(s.batchSize))
	if err != nil {
		return nil, fmt.Errorf("%w: find %s.%s: %w", ErrStoreUnavailable, s.database, s.collection, err)
	}
	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: read %s.%s: %w", ErrStoreUnavailable, s.database, s.collection, err)
	}
	return strip(tableFromDocs(docs)), nil
}

// Close disconnects an owned client.
func (s *MongoSource) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// tableFromDocs keeps field order of the first document and appends fields
// that only appear later.
func tableFromDocs(docs []bson.D) *model.RawTable {
	t := &model.RawTable{Rows: make([]map[string]string, 0, len(docs))}
	for _, d := range docs {
		row := make(map[string]string, len(d))
		for _, e := range d {
			if !slices.Contains(t.Columns, e.Key) {
				t.Columns = append(t.Columns, e.Key)
			}
			row[e.Key] = cell(e.Value)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case primitive.ObjectID:
		return x.Hex()
	}
	return fmt.Sprint(v)
}
