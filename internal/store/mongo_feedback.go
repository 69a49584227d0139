package store

import (
	"context"
	"fmt"
	"time"

	"ChattyWidget/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const feedbackCollection = "response_feedback"

// MongoFeedbackStore 将回答反馈写入 MongoDB，供外部分析系统消费。
type MongoFeedbackStore struct {
	coll *mongo.Collection
}

// NewMongoFeedbackStore 创建一个 MongoFeedbackStore。
func NewMongoFeedbackStore(client *mongo.Client, database string) *MongoFeedbackStore {
	return &MongoFeedbackStore{
		coll: client.Database(database).Collection(feedbackCollection),
	}
}

// Record 插入一条反馈记录。
func (s *MongoFeedbackStore) Record(ctx context.Context, fb *models.Feedback) error {
	doc := bson.M{
		"response_id": fb.ResponseID,
		"user_id":     fb.UserID,
		"rating":      fb.Rating,
		"comment":     fb.Comment,
		"created_at":  time.Now(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

var _ FeedbackStore = (*MongoFeedbackStore)(nil)
