package userrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/infrastructure/database/dbschema"
	"tutor-server/services/chat-api/internal/infrastructure/database/transaction"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

type UserGormRepository struct {
	db *transaction.Database
}

var _ user.Repository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *transaction.Database) user.Repository {
	return &UserGormRepository{db: db}
}

func (repo *UserGormRepository) FindByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	var entity dbschema.User
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("external_id = ?", externalID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "user not found", err, "4f8e2a1c-7d3b-4690-a5e8-2c9f1b6d4a70")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find user by external ID", err, "5a9d3b2e-8c4f-4701-b6a9-3d0e2c7f5b81")
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var entity dbschema.User
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "user not found", err, "6b0e4c3f-9d5a-4812-c7b0-4e1f3d8a6c92")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find user by ID", err, "7c1f5d4a-0e6b-4923-d8c1-5f2a4e9b7d03")
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) Create(ctx context.Context, u *user.User) error {
	entity := dbschema.NewSchemaUser(u)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create user", err, "8d2a6e5b-1f7c-4a34-e9d2-6a3b5f0c8e14")
	}
	u.ID = entity.ID
	u.CreatedAt = entity.CreatedAt
	u.UpdatedAt = entity.UpdatedAt
	return nil
}

func (repo *UserGormRepository) Update(ctx context.Context, u *user.User) error {
	entity := dbschema.NewSchemaUser(u)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Save(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update user", err, "9e3b7f6c-2a8d-4b45-f0e3-7b4c6a1d9f25")
	}
	u.UpdatedAt = entity.UpdatedAt
	return nil
}
