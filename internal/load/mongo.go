package load

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"finetl/internal/etl"
	"finetl/pkg/logger"
	"finetl/pkg/models"
)

const (
	mongoDatabase   = "finetl"
	mongoCollection = "financial_facts"
)

// factKeyFields identify a fact document for upserts; re-running the same
// filing overwrites rather than duplicates.
var factKeyFields = []string{
	models.FieldTicker,
	models.FieldFilingDate,
	models.FieldStatementType,
	models.FieldLineItem,
	models.FieldPeriod,
}

// MongoLoader upserts fact documents with a single BulkWrite per batch.
type MongoLoader struct {
	client *mongo.Client
}

func NewMongoLoader(client *mongo.Client) *MongoLoader {
	return &MongoLoader{client: client}
}

func (m *MongoLoader) Load(ctx context.Context, batch models.Batch) (int, error) {
	coll := m.client.Database(mongoDatabase).Collection(mongoCollection)

	writes := make([]mongo.WriteModel, 0, len(batch))
	for _, rec := range batch {
		doc := bson.M{}
		for _, field := range rec.Fields() {
			v, _ := rec.Get(field)
			doc[field] = v
		}

		filter := bson.M{}
		for _, field := range factKeyFields {
			if v, ok := rec.Get(field); ok {
				filter[field] = v
			}
		}

		model := mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true)
		writes = append(writes, model)
	}

	if len(writes) == 0 {
		return 0, nil
	}

	res, err := coll.BulkWrite(ctx, writes)
	if err != nil {
		confirmed := 0
		if res != nil {
			confirmed = int(res.MatchedCount + res.UpsertedCount)
		}
		return confirmed, &etl.LoadError{Sink: "mongodb", Err: err}
	}

	logger.Infof("Mongo BulkWrite: matched %d, modified %d, upserted %d",
		res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return len(batch), nil
}

func (m *MongoLoader) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
