package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transactionsCollection = "transactions"

type transactionDocument struct {
	ID        primitive.ObjectID   `bson:"_id"`
	UserID    primitive.ObjectID   `bson:"userId"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Category  string               `bson:"category"`
	Type      string               `bson:"type"`
	Date      time.Time            `bson:"date"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d transactionDocument) toModel() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("decode amount of %s: %w", d.ID.Hex(), err)
	}
	return &models.Transaction{
		ID:        d.ID.Hex(),
		OwnerID:   d.UserID.Hex(),
		Amount:    amount,
		Category:  d.Category,
		Type:      models.TxType(d.Type),
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
	}, nil
}

// toDecimal128 rejects amounts Decimal128 cannot hold exactly as a ValidationError.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	if d.NumDigits() > models.MaxAmountDigits {
		return primitive.Decimal128{}, models.NewValidationError("amount", "out of range")
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, models.NewValidationError("amount", "out of range")
	}
	return v, nil
}

// MongoTransactionRepo implements TransactionStore on a MongoDB collection.
type MongoTransactionRepo struct {
	coll    *mongo.Collection
	Timeout time.Duration
}

// NewMongoTransactionRepo uses the "transactions" collection of db.
func NewMongoTransactionRepo(db *mongo.Database) *MongoTransactionRepo {
	return &MongoTransactionRepo{coll: db.Collection(transactionsCollection), Timeout: DefaultTimeout}
}

// EnsureIndexes creates the (userId, date) index used by owner listings.
func (r *MongoTransactionRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	return nil
}

func (r *MongoTransactionRepo) Create(ctx context.Context, ownerID string, f models.TransactionFields) (*models.Transaction, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", ownerID, err)
	}
	amount, err := toDecimal128(f.Amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	doc := transactionDocument{
		ID:        primitive.NewObjectID(),
		UserID:    owner,
		Amount:    amount,
		Category:  f.Category,
		Type:      string(f.Type),
		Date:      f.Date.UTC().Truncate(time.Millisecond),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return doc.toModel()
}

func (r *MongoTransactionRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return nil, ErrNotFound
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	var doc transactionDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return doc.toModel()
}

func (r *MongoTransactionRepo) UpdateByID(ctx context.Context, ownerID, id string, p models.TransactionPatch) (*models.Transaction, error) {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if p.Amount != nil {
		amount, err := toDecimal128(*p.Amount)
		if err != nil {
			return nil, err
		}
		set["amount"] = amount
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Type != nil {
		set["type"] = string(*p.Type)
	}
	if p.Date != nil {
		set["date"] = p.Date.UTC().Truncate(time.Millisecond)
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc transactionDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return doc.toModel()
}

func (r *MongoTransactionRepo) DeleteByID(ctx context.Context, ownerID, id string) error {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return ErrNotFound
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTransactionRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Transaction, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Transaction{}, nil
	}
	return r.find(ctx, bson.M{"userId": owner})
}

func (r *MongoTransactionRepo) ListByOwnerInRange(ctx context.Context, ownerID string, from, to time.Time) ([]models.Transaction, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Transaction{}, nil
	}
	return r.find(ctx, bson.M{
		"userId": owner,
		"date":   bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	})
}

func (r *MongoTransactionRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *MongoTransactionRepo) find(ctx context.Context, filter bson.M) ([]models.Transaction, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	var docs []transactionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	txs := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.toModel()
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

func ownedFilter(ownerID, id string) (bson.M, bool) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": objectID, "userId": owner}, true
}
