// internal/repository/mongo/store.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ali-Herrera/tri-tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxBatchOps bounds one transaction. Mongo has no hard operation count
// limit, but large transactions hit the 16MB oplog entry ceiling.
const maxBatchOps = 1000

const userIDField = "userId"

// Store implements repository.DocumentStore with one Mongo collection per
// document collection. Documents carry their owner in userId and their id as a
// string _id.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates a document store on the given database.
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{client: client, db: db}
}

func (s *Store) MaxBatchOps() int {
	return maxBatchOps
}

func (s *Store) collection(c repository.Collection) *mongo.Collection {
	return s.db.Collection(string(c))
}

func byID(userID, id string) bson.M {
	return bson.M{"_id": id, userIDField: userID}
}

// toDocument strips the storage fields from a raw result.
func toDocument(raw bson.M) (repository.Document, error) {
	id, ok := raw["_id"].(string)
	if !ok {
		return repository.Document{}, errors.New("document _id is not a string")
	}
	delete(raw, "_id")
	delete(raw, userIDField)
	return repository.Document{ID: id, Fields: repository.Fields(raw)}, nil
}

// withOwner copies fields and adds the storage fields.
func withOwner(userID, id string, fields repository.Fields) bson.M {
	doc := make(bson.M, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id
	doc[userIDField] = userID
	return doc
}

// splitPatch turns a patch into $set / $unset operators.
func splitPatch(patch repository.Fields) bson.M {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range patch {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func buildFilter(userID string, q repository.Query) bson.M {
	filter := bson.M{userIDField: userID}
	ops := map[string]bson.M{}
	for _, f := range q.Filters {
		m, ok := ops[f.Field]
		if !ok {
			m = bson.M{}
			ops[f.Field] = m
		}
		switch f.Op {
		case repository.OpEq:
			m["$eq"] = f.Value
		case repository.OpGte:
			m["$gte"] = f.Value
		case repository.OpLte:
			m["$lte"] = f.Value
		}
	}
	for field, m := range ops {
		filter[field] = m
	}
	return filter
}

func buildSort(q repository.Query) bson.D {
	sort := bson.D{}
	for _, o := range q.OrderBy {
		dir := 1
		if o.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// --- Reads ---

func (s *Store) Query(ctx context.Context, userID string, c repository.Collection, q repository.Query) ([]repository.Document, error) {
	findOptions := options.Find().SetSort(buildSort(q))
	cursor, err := s.collection(c).Find(ctx, buildFilter(userID, q), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err = cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]repository.Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := toDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Get(ctx context.Context, userID string, c repository.Collection, id string) (repository.Document, error) {
	var raw bson.M
	err := s.collection(c).FindOne(ctx, byID(userID, id)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Document{}, repository.ErrNotFound
		}
		return repository.Document{}, err
	}
	return toDocument(raw)
}

// --- Single writes ---

func (s *Store) Add(ctx context.Context, userID string, c repository.Collection, fields repository.Fields) (string, error) {
	id := repository.NewID()
	if _, err := s.collection(c).InsertOne(ctx, withOwner(userID, id, fields)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, userID string, c repository.Collection, id string, fields repository.Fields, merge bool) error {
	return s.set(ctx, s.collection(c), userID, id, fields, merge)
}

func (s *Store) set(ctx context.Context, coll *mongo.Collection, userID, id string, fields repository.Fields, merge bool) error {
	if !merge {
		_, err := coll.ReplaceOne(ctx, byID(userID, id), withOwner(userID, id, fields), options.Replace().SetUpsert(true))
		return err
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	_, err := coll.UpdateOne(ctx, byID(userID, id), bson.M{"$set": set}, options.Update().SetUpsert(true))
	return err
}

func (s *Store) Update(ctx context.Context, userID string, c repository.Collection, id string, patch repository.Fields) error {
	return s.update(ctx, s.collection(c), userID, id, patch)
}

func (s *Store) update(ctx context.Context, coll *mongo.Collection, userID, id string, patch repository.Fields) error {
	norm, err := repository.Encode(patch)
	if err != nil {
		return err
	}
	update := splitPatch(norm)
	if len(update) == 0 {
		// Nothing to write, but the document must still exist.
		n, err := coll.CountDocuments(ctx, byID(userID, id))
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	}
	result, err := coll.UpdateOne(ctx, byID(userID, id), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string, c repository.Collection, id string) error {
	_, err := s.collection(c).DeleteOne(ctx, byID(userID, id))
	return err
}

// --- Batches ---

// Commit applies the batch inside a multi-document transaction. Requires a
// replica set or sharded cluster.
func (s *Store) Commit(ctx context.Context, userID string, b *repository.Batch) error {
	if b.Len() > maxBatchOps {
		return fmt.Errorf("%w: %d operations, limit %d", repository.ErrBatchTooLarge, b.Len(), maxBatchOps)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range b.Ops() {
			if err := s.apply(sc, userID, op); err != nil {
				return nil, fmt.Errorf("%s %s/%s: %w", op.Kind, op.Collection, op.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		log.Printf("ERROR: Batch of %d operations for user %s rolled back: %v", b.Len(), userID, err)
	}
	return err
}

func (s *Store) apply(ctx context.Context, userID string, op repository.BatchOp) error {
	coll := s.collection(op.Collection)
	switch op.Kind {
	case repository.OpCreate:
		_, err := coll.InsertOne(ctx, withOwner(userID, op.ID, op.Fields))
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateID
		}
		return err
	case repository.OpSet:
		return s.set(ctx, coll, userID, op.ID, op.Fields, op.Merge)
	case repository.OpUpdate:
		return s.update(ctx, coll, userID, op.ID, op.Fields)
	case repository.OpDelete:
		_, err := coll.DeleteOne(ctx, byID(userID, op.ID))
		return err
	}
	return fmt.Errorf("unknown batch operation %d", op.Kind)
}

// --- Indexes ---

// EnsureIndexes creates the per-user indexes every collection is queried by.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	dated := []repository.Collection{
		repository.CollectionWorkouts,
		repository.CollectionAdaptations,
		repository.CollectionPlannedWorkouts,
	}
	for _, c := range dated {
		indexes := []mongo.IndexModel{
			{
				Keys: bson.D{{Key: userIDField, Value: 1}, {Key: "date", Value: 1}},
			},
		}
		if _, err := db.Collection(string(c)).Indexes().CreateMany(ctx, indexes); err != nil {
			log.Printf("WARN: Failed to create indexes for collection %s: %v", c, err)
		}
	}

	importIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: userIDField, Value: 1}, {Key: "fingerprint", Value: 1}},
		},
	}
	if _, err := db.Collection(string(repository.CollectionImports)).Indexes().CreateMany(ctx, importIndexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", repository.CollectionImports, err)
	}
}
