package vocabularyrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tutor-server/services/chat-api/internal/domain/vocabulary"
	"tutor-server/services/chat-api/internal/infrastructure/database/dbschema"
	"tutor-server/services/chat-api/internal/infrastructure/database/transaction"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

type VocabularyGormRepository struct {
	db *transaction.Database
}

var _ vocabulary.Repository = (*VocabularyGormRepository)(nil)

func NewVocabularyGormRepository(db *transaction.Database) vocabulary.Repository {
	return &VocabularyGormRepository{db: db}
}

// Create implements vocabulary.Repository.
func (repo *VocabularyGormRepository) Create(ctx context.Context, v *vocabulary.Vocabulary) error {
	entity := dbschema.NewSchemaVocabulary(v)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create vocabulary", err, "6d0a4e3b-9f5c-4a12-e7d0-4a1b3f8c6e92")
	}
	v.ID = entity.ID
	v.CreatedAt = entity.CreatedAt
	return nil
}

// FindByUser implements vocabulary.Repository, newest first.
func (repo *VocabularyGormRepository) FindByUser(ctx context.Context, userID uint) ([]*vocabulary.Vocabulary, error) {
	var entities []dbschema.Vocabulary
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to list vocabularies", err, "7e1b5f4c-0a6d-4b23-f8e1-5b2c4a9d7f03")
	}

	result := make([]*vocabulary.Vocabulary, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}

// FindByUserAndWord implements vocabulary.Repository.
func (repo *VocabularyGormRepository) FindByUserAndWord(ctx context.Context, userID uint, word string) (*vocabulary.Vocabulary, error) {
	var entity dbschema.Vocabulary
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("user_id = ? AND word = ?", userID, word).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "vocabulary not found", err, "8f2c6a5d-1b7e-4c34-a9f2-6c3d5b0e8a14")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find vocabulary by word", err, "9a3d7b6e-2c8f-4d45-b0a3-7d4e6c1f9b25")
	}
	return entity.EtoD(), nil
}

// FindByPublicID implements vocabulary.Repository.
func (repo *VocabularyGormRepository) FindByPublicID(ctx context.Context, publicID string) (*vocabulary.Vocabulary, error) {
	var entity dbschema.Vocabulary
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "vocabulary not found", err, "0b4e8c7f-3d9a-4e56-c1b4-8e5f7d2a0c36")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find vocabulary by public ID", err, "1c5f9d8a-4e0b-4f67-d2c5-9f6a8e3b1d47")
	}
	return entity.EtoD(), nil
}

// Update implements vocabulary.Repository.
func (repo *VocabularyGormRepository) Update(ctx context.Context, v *vocabulary.Vocabulary) error {
	entity := dbschema.NewSchemaVocabulary(v)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Save(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update vocabulary", err, "2d6a0e9b-5f1c-4a78-e3d6-0a7b9f4c2e58")
	}
	return nil
}

// Delete implements vocabulary.Repository.
func (repo *VocabularyGormRepository) Delete(ctx context.Context, id uint) error {
	if err := repo.db.GetTx(ctx).WithContext(ctx).Delete(&dbschema.Vocabulary{}, id).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to delete vocabulary", err, "3e7b1f0c-6a2d-4b89-f4e7-1b8c0a5d3f69")
	}
	return nil
}
