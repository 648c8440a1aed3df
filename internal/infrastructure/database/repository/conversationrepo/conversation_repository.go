package conversationrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/infrastructure/database/dbschema"
	"tutor-server/services/chat-api/internal/infrastructure/database/transaction"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *transaction.Database
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) conversation.Repository {
	return &ConversationGormRepository{db: db}
}

// Create implements conversation.Repository.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	entity := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create conversation", err, "0f4c8a7d-3b9e-4c56-a1f4-8c5d7b2e0a36")
	}
	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID implements conversation.Repository.
func (repo *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	var entity dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", err, "1a5d9b8e-4c0f-4d67-b2a5-9d6e8c3f1b47")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find conversation by public ID", err, "2b6e0c9f-5d1a-4e78-c3b6-0e7f9d4a2c58")
	}
	return entity.EtoD(), nil
}

// FindByFilter implements conversation.Repository. Results are ordered by
// most recent activity first.
func (repo *ConversationGormRepository) FindByFilter(ctx context.Context, filter conversation.Filter) ([]*conversation.Conversation, error) {
	sql := repo.db.GetTx(ctx).WithContext(ctx).Model(&dbschema.Conversation{})
	if filter.ID != nil {
		sql = sql.Where("id = ?", *filter.ID)
	}
	if filter.PublicID != nil {
		sql = sql.Where("public_id = ?", *filter.PublicID)
	}
	if filter.UserID != nil {
		sql = sql.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsDeleted != nil {
		sql = sql.Where("is_deleted = ?", *filter.IsDeleted)
	}

	var entities []dbschema.Conversation
	if err := sql.Order("updated_at DESC").Find(&entities).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find conversations", err, "3c7f1d0a-6e2b-4f89-d4c7-1f8a0e5b3d69")
	}

	result := make([]*conversation.Conversation, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}

// Update implements conversation.Repository.
func (repo *ConversationGormRepository) Update(ctx context.Context, conv *conversation.Conversation) error {
	entity := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Save(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update conversation", err, "4d8a2e1b-7f3c-4a90-e5d8-2a9b1f6c4e70")
	}
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// HardDelete implements conversation.Repository. Messages go with the
// conversation via the FK cascade.
func (repo *ConversationGormRepository) HardDelete(ctx context.Context, id uint) error {
	if err := repo.db.GetTx(ctx).WithContext(ctx).Delete(&dbschema.Conversation{}, id).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to delete conversation", err, "5e9b3f2c-8a4d-4b01-f6e9-3b0c2a7d5f81")
	}
	return nil
}

// HardDeleteSoftDeletedBefore implements conversation.Repository.
func (repo *ConversationGormRepository) HardDeleteSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&dbschema.Conversation{})
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to sweep deleted conversations", result.Error, "6f0c4a3d-9b5e-4c12-a7f0-4c1d3b8e6a92")
	}
	return result.RowsAffected, nil
}

// FindMessages implements conversation.Repository, ordered oldest first.
func (repo *ConversationGormRepository) FindMessages(ctx context.Context, conversationID uint) ([]conversation.Message, error) {
	var entities []dbschema.Message
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find messages", err, "7a1d5b4e-0c6f-4d23-b8a1-5d2e4c9f7b03")
	}

	result := make([]conversation.Message, 0, len(entities))
	for i := range entities {
		result = append(result, *entities[i].EtoD())
	}
	return result, nil
}

// FindMessageByPublicID implements conversation.Repository.
func (repo *ConversationGormRepository) FindMessageByPublicID(ctx context.Context, publicID string) (*conversation.Message, error) {
	var entity dbschema.Message
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "message not found", err, "8b2e6c5f-1d7a-4e34-c9b2-6e3f5d0a8c14")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find message by public ID", err, "9c3f7d6a-2e8b-4f45-d0c3-7f4a6e1b9d25")
	}
	return entity.EtoD(), nil
}

// CreateMessage implements conversation.Repository.
func (repo *ConversationGormRepository) CreateMessage(ctx context.Context, msg *conversation.Message) error {
	entity := dbschema.NewSchemaMessage(msg)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create message", err, "0d4a8e7b-3f9c-4a56-e1d4-8a5b7f2c0e36")
	}
	msg.ID = entity.ID
	msg.CreatedAt = entity.CreatedAt
	return nil
}

// UpdateMessage implements conversation.Repository.
func (repo *ConversationGormRepository) UpdateMessage(ctx context.Context, msg *conversation.Message) error {
	entity := dbschema.NewSchemaMessage(msg)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Save(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update message", err, "1e5b9f8c-4a0d-4b67-f2e5-9b6c8a3d1f47")
	}
	return nil
}

// DeleteMessage implements conversation.Repository.
func (repo *ConversationGormRepository) DeleteMessage(ctx context.Context, id uint) error {
	if err := repo.db.GetTx(ctx).WithContext(ctx).Delete(&dbschema.Message{}, id).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to delete message", err, "2f6c0a9d-5b1e-4c78-a3f6-0c7d9b4e2a58")
	}
	return nil
}
