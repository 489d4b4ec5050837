package persistence

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/pipevine/pkg/api"
)

// MongoStore is a Store backed by MongoDB. The pipeline key doubles as
// the document _id, so the collection's unique index gives key-conflict
// detection for free.
type MongoStore struct {
	coll *mongo.Collection
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a Mongo-backed pipeline store.
// dbName defaults to "pipevine" if empty, collName defaults to "pipelines".
func NewMongoStore(client *mongo.Client, dbName, collName string) *MongoStore {
	if dbName == "" {
		dbName = "pipevine"
	}
	if collName == "" {
		collName = "pipelines"
	}

	return &MongoStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoRecordDoc struct {
	PKey    string    `bson:"_id"`
	AppName string    `bson:"app_name"`
	Data    []byte    `bson:"data,omitempty"`
	Created time.Time `bson:"created"`
	Updated time.Time `bson:"updated"`
}

func (s *MongoStore) Insert(ctx context.Context, rec Record) error {
	doc := mongoRecordDoc{
		PKey:    rec.PKey,
		AppName: rec.AppName,
		Data:    rec.Data,
		Created: rec.Created.UTC(),
		Updated: rec.Updated.UTC(),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return api.ErrKeyConflict
		}
		return err
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, pkey string) (Record, error) {
	var doc mongoRecordDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": pkey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, api.ErrPipelineNotFound
		}
		return Record{}, err
	}

	return Record{
		PKey:    doc.PKey,
		AppName: doc.AppName,
		Data:    doc.Data,
		Created: doc.Created,
		Updated: doc.Updated,
	}, nil
}

func (s *MongoStore) Update(ctx context.Context, pkey string, data []byte, updated time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": pkey},
		bson.M{"$set": bson.M{
			"data":    data,
			"updated": updated.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return api.ErrPipelineNotFound
	}
	return nil
}

func (s *MongoStore) ScanKeys(ctx context.Context, appName, prefix string) ([]string, error) {
	filter := bson.M{"app_name": appName}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}

	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var doc struct {
			PKey string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.PKey)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
