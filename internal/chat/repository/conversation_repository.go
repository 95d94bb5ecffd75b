package repository

import (
	"context"
	"errors"

	"job_board_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation store
type ConversationRepository interface {
	EnsureIndexes(ctx context.Context) error
	// Create 寫入conversation,pair_key撞唯一索引時回傳domain.ErrDuplicatePair
	Create(ctx context.Context, conv *domain.Conversation) error
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// FindDirectByPair 以無序pair查唯一的direct conversation
	FindDirectByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	// ListByUser 依最後活動時間新到舊分頁
	ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, error)
	// Touch 訊息寫入後更新最後活動時間
	Touch(ctx context.Context, conversationID string, at int64) error
	SetParticipants(ctx context.Context, conversationID string, participants []domain.Participant) error
	// SetLastRead mark-read專用,只動該成員的last_read_at
	SetLastRead(ctx context.Context, conversationID, userID string, at int64) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository on mongo
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureIndexes 建立pair_key唯一索引(只作用在有pair_key的direct)與列表索引
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"pair_key": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "participants.user_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	return err
}

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicatePair
	}
	return err
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindDirectByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	filter := bson.M{
		"kind":     domain.KindDirect,
		"pair_key": domain.DirectPairKey(userA, userB),
	}
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, error) {
	filter := bson.M{"participants.user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, conversationID string, at int64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"updated_at": at}},
	)
	return err
}

func (r *conversationRepository) SetParticipants(ctx context.Context, conversationID string, participants []domain.Participant) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"participants": participants}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *conversationRepository) SetLastRead(ctx context.Context, conversationID, userID string, at int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID, "participants.user_id": userID},
		bson.M{"$set": bson.M{"participants.$.last_read_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotParticipant
	}
	return nil
}
