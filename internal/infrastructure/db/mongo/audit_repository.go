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

const auditCollection = "auth_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

// Insert persists one auth event to the audit collection.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	doc := bson.M{
		"username":  event.Username,
		"level":     int(event.Level),
		"outcome":   string(event.Outcome),
		"timestamp": event.Timestamp.UTC(),
	}
	if event.ClientIP != "" {
		doc["client_ip"] = event.ClientIP
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// ListByUsername returns the most recent events for a user, newest first.
func (r *AuditRepository) ListByUsername(ctx context.Context, username string, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer cur.Close(ctx)

	var events []domain.AuthEvent
	for cur.Next(ctx) {
		var doc struct {
			ID        primitive.ObjectID `bson:"_id"`
			Username  string             `bson:"username"`
			Level     int                `bson:"level"`
			Outcome   string             `bson:"outcome"`
			ClientIP  string             `bson:"client_ip,omitempty"`
			Timestamp time.Time          `bson:"timestamp"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode auth event: %w", err)
		}
		events = append(events, domain.AuthEvent{
			ID:        doc.ID.Hex(),
			Username:  doc.Username,
			Level:     domain.Level(doc.Level),
			Outcome:   domain.Outcome(doc.Outcome),
			ClientIP:  doc.ClientIP,
			Timestamp: doc.Timestamp.UTC(),
		})
	}
	return events, cur.Err()
}
