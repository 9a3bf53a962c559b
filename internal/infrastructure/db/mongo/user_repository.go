package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
)

const userCollection = "users"

// UserRepository implements ports.CredentialStore on MongoDB. The security
// counters are updated with single-document pipeline updates, which Mongo
// applies atomically per document.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

// EnsureIndexes creates the unique username index. Call once at startup.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

type mongoUser struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Username          string             `bson:"username"`
	Email             string             `bson:"email,omitempty"`
	PasswordHash      string             `bson:"password_hash"`
	PlaintextPassword string             `bson:"plaintext_password"`
	TOTPSecret        string             `bson:"totp_secret,omitempty"`
	FailedAttempts    int                `bson:"failed_attempts"`
	LockoutUntil      int64              `bson:"lockout_until"` // unix seconds, 0 = not locked
	LastTOTPStep      int64              `bson:"last_totp_step"`
	CreatedAt         int64              `bson:"created_at"`
	UpdatedAt         int64              `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := mongoUser{
		Username:          user.Username,
		Email:             user.Email,
		PasswordHash:      user.PasswordHash,
		PlaintextPassword: user.PlaintextPassword,
		TOTPSecret:        user.TOTPSecret,
		CreatedAt:         user.CreatedAt.Unix(),
		UpdatedAt:         user.UpdatedAt.Unix(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// RecordFailure increments the counter and, when the post-increment value
// reaches the threshold, stamps the lockout deadline. Both writes land in one
// pipeline update on one document, so racing failures can neither lose an
// increment nor set the lockout twice for the same crossing.
func (r *UserRepository) RecordFailure(ctx context.Context, username string, policy ports.LockoutPolicy, now time.Time) (*domain.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"failed_attempts": bson.M{"$add": bson.A{"$failed_attempts", 1}},
			"updated_at":      now.Unix(),
		}}},
		{{Key: "$set", Value: bson.M{
			"lockout_until": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$failed_attempts", policy.MaxAttempts}},
				now.Add(policy.LockoutFor).Unix(),
				"$lockout_until",
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"username": username}, pipeline, opts).Decode(&mu)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("record failure: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) RecordSuccess(ctx context.Context, username string) error {
	update := bson.M{"$set": bson.M{
		"failed_attempts": 0,
		"lockout_until":   int64(0),
		"updated_at":      time.Now().UTC().Unix(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordTOTPStep(ctx context.Context, username string, step int64) error {
	// $max keeps the newest consumed step under concurrent verifies
	update := bson.M{"$max": bson.M{"last_totp_step": step}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("record totp step: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (mu *mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:                mu.ID.Hex(),
		Username:          mu.Username,
		Email:             mu.Email,
		PasswordHash:      mu.PasswordHash,
		PlaintextPassword: mu.PlaintextPassword,
		TOTPSecret:        mu.TOTPSecret,
		FailedAttempts:    mu.FailedAttempts,
		LastTOTPStep:      mu.LastTOTPStep,
		CreatedAt:         unixToTime(mu.CreatedAt),
		UpdatedAt:         unixToTime(mu.UpdatedAt),
	}
	if mu.LockoutUntil > 0 {
		until := unixToTime(mu.LockoutUntil)
		u.LockoutUntil = &until
	}
	return u
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
