package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const otpCollection = "otps"

type otpDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Code      string        `bson:"otp"`
	CreatedAt time.Time     `bson:"createdAt"`
	ExpiresAt time.Time     `bson:"expiresAt"`
}

// OTPRepository keeps codes in a collection with a TTL index on
// expiresAt, so the server removes each document once it expires.
//
// In exclusive mode a unique index on email plus an upsert that only
// matches expired documents makes a second live code impossible.
type OTPRepository struct {
	client    *mongo.Client
	coll      *mongo.Collection
	exclusive bool
}

func NewOTPRepository(client *mongo.Client, database string, exclusive bool) *OTPRepository {
	return &OTPRepository{
		client:    client,
		coll:      client.Database(database).Collection(otpCollection),
		exclusive: exclusive,
	}
}

// EnsureIndexes creates the TTL index and, in exclusive mode, the
// unique email index. Safe to call on every start.
func (r *OTPRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
	}
	if r.exclusive {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		})
	} else {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("email_createdAt"),
		})
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create otp indexes: %w", err)
	}
	return nil
}

func (r *OTPRepository) FindLatest(ctx context.Context, email string) (*domain.OTP, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc otpDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}

	return &domain.OTP{
		Email:     doc.Email,
		Code:      doc.Code,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func (r *OTPRepository) Create(ctx context.Context, otp *domain.OTP) error {
	doc := otpDocument{
		Email:     otp.Email,
		Code:      otp.Code,
		CreatedAt: otp.CreatedAt,
		ExpiresAt: otp.ExpiresAt,
	}

	if !r.exclusive {
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert otp: %w", err)
		}
		return nil
	}

	// Only an expired document (not yet reaped by the TTL monitor) can be
	// replaced. A live one makes the upsert collide on email_unique.
	filter := bson.D{
		{Key: "email", Value: otp.Email},
		{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: otp.CreatedAt}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "otp", Value: doc.Code},
		{Key: "createdAt", Value: doc.CreatedAt},
		{Key: "expiresAt", Value: doc.ExpiresAt},
	}}}

	_, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOTPActive
		}
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
