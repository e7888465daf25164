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
)

type JournalTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JournalMapper
}

func NewJournalTurnRepository(db *gorm.DB) contract.JournalTurnRepository {
	return &JournalTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewJournalMapper(),
	}
}

func (r *JournalTurnRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JournalTurnRepositoryImpl) Create(ctx context.Context, turn *entity.JournalTurn) error {
	m := r.mapper.TurnToModel(turn)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*turn = *r.mapper.TurnToEntity(m)
	return nil
}

func (r *JournalTurnRepositoryImpl) BackfillAudioURL(ctx context.Context, id uuid.UUID, audioURL string) error {
	// Guarded update: only fills a NULL audio_url, never overwrites one.
	return r.db.WithContext(ctx).
		Model(&model.JournalTurn{}).
		Where("id = ? AND audio_url IS NULL", id).
		Update("audio_url", audioURL).Error
}

func (r *JournalTurnRepositoryImpl) DeleteAllBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.JournalTurn{}).Error
}

func (r *JournalTurnRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalTurn, error) {
	var m model.JournalTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TurnToEntity(&m), nil
}

func (r *JournalTurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalTurn, error) {
	var models []*model.JournalTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.JournalTurn, len(models))
	for i, m := range models {
		entities[i] = r.mapper.TurnToEntity(m)
	}
	return entities, nil
}

func (r *JournalTurnRepositoryImpl) MaxOrder(ctx context.Context, sessionId uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&model.JournalTurn{}).
		Where("session_id = ?", sessionId).
		Select("MAX(turn_order)").
		Scan(&max).Error
	if err != nil {
		return -1, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}
