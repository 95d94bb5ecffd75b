package repository

import (
	"context"
	"errors"

	"job_board_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// ListByConversation 舊到新分頁,scroll-back較穩定
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error)
	SetContent(ctx context.Context, messageID, content string, editedAt int64) error
	SoftDelete(ctx context.Context, messageID string, deletedAt int64) error
	// CountUnread 未讀重算的單一事實來源:
	// created_at > lastReadAt 且 sender != userID 且未刪除
	CountUnread(ctx context.Context, conversationID, userID string, lastReadAt int64) (int, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository on mongo
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	// (created_at, _id) 排序,同一毫秒用id決勝負
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) SetContent(ctx context.Context, messageID, content string, editedAt int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"content": content, "edited_at": editedAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID string, deletedAt int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"deleted_at": deletedAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID, userID string, lastReadAt int64) (int, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"created_at":      bson.M{"$gt": lastReadAt},
		"sender_id":       bson.M{"$ne": userID},
		"deleted_at":      bson.M{"$exists": false},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
