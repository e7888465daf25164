package implementation

import (
	"context"
	"errors"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/mapper"
	"voice-journal-be/internal/model"
	"voice-journal-be/internal/repository/contract"
	"voice-journal-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeletedAttemptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JournalMapper
}

func NewDeletedAttemptRepository(db *gorm.DB) contract.DeletedAttemptRepository {
	return &DeletedAttemptRepositoryImpl{
		db:     db,
		mapper: mapper.NewJournalMapper(),
	}
}

func (r *DeletedAttemptRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DeletedAttemptRepositoryImpl) Upsert(ctx context.Context, attempt *entity.DeletedAttempt) error {
	m := r.mapper.DeletedAttemptToModel(attempt)
	// ON CONFLICT DO NOTHING on (user_id, date) keeps the marker idempotent.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(m).Error
}

func (r *DeletedAttemptRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DeletedAttempt, error) {
	var m model.DeletedAttempt
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DeletedAttemptToEntity(&m), nil
}
