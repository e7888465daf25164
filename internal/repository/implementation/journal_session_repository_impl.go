package implementation

import (
	"context"
	"errors"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/mapper"
	"voice-journal-be/internal/model"
	"voice-journal-be/internal/repository/contract"
	"voice-journal-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JournalSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JournalMapper
}

func NewJournalSessionRepository(db *gorm.DB) contract.JournalSessionRepository {
	return &JournalSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewJournalMapper(),
	}
}

func (r *JournalSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JournalSessionRepositoryImpl) Create(ctx context.Context, session *entity.JournalSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *JournalSessionRepositoryImpl) Update(ctx context.Context, session *entity.JournalSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *JournalSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.JournalSession{}, id).Error
}

func (r *JournalSessionRepositoryImpl) FindOneLocked(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error) {
	var m model.JournalSession
	query := r.applySpecifications(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *JournalSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error) {
	var m model.JournalSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *JournalSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalSession, error) {
	var models []*model.JournalSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.JournalSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *JournalSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.JournalSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
