package repository

import (
	"context"
	"fmt"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageMongoRepository is the primary chat message store
type MessageMongoRepository struct {
	coll *mongo.Collection
}

// NewMessageMongoRepository creates the repository. Call EnsureIndexes once at startup.
func NewMessageMongoRepository(coll *mongo.Collection) *MessageMongoRepository {
	return &MessageMongoRepository{coll: coll}
}

// EnsureIndexes creates the conversation and unread indexes if they are missing
func (r *MessageMongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("pair_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("receiver_read_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

// Name identifies the backend in logs and metrics
func (r *MessageMongoRepository) Name() string { return "mongo" }

// Insert stores a message
func (r *MessageMongoRepository) Insert(ctx context.Context, m *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

// Conversation returns messages exchanged between a and b, oldest first
func (r *MessageMongoRepository) Conversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, conversationFilter(a, b), opts)
}

// Involving returns every message sent or received by userID, newest first
func (r *MessageMongoRepository) Involving(ctx context.Context, userID string) ([]*domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, involvingFilter(userID), opts)
}

// MarkRead flips every unread message from peerID to selfID
func (r *MessageMongoRepository) MarkRead(ctx context.Context, peerID, selfID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, unreadFilter(peerID, selfID), bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageMongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Message, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func conversationFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
}

func involvingFilter(userID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}}
}

func unreadFilter(peerID, selfID string) bson.M {
	return bson.M{"sender_id": peerID, "receiver_id": selfID, "read": false}
}
