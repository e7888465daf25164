package service

import (
	"context"
	"encoding/json"
	"time"

	"voice-journal-be/internal/config"
	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/repository/specification"
	"voice-journal-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Entitlement is the capacity decision for one user. Decisions are cached:
// plan changes take up to entitlementTTL to propagate, which is acceptable
// for a duration cap.
type Entitlement struct {
	Allowed            bool   `json:"allowed"`
	MaxDurationSeconds int    `json:"max_duration_seconds"`
	Reason             string `json:"reason,omitempty"`
	// AttemptLimitExempt is true for admin users, who bypass the daily
	// attempt marker entirely.
	AttemptLimitExempt bool `json:"attempt_limit_exempt"`
}

const entitlementTTL = 5 * time.Minute

type IEntitlementService interface {
	Check(ctx context.Context, userId uuid.UUID) (*Entitlement, error)
}

type entitlementService struct {
	uowFactory unitofwork.RepositoryFactory
	rdb        *redis.Client // nil when Redis is not configured
	local      *cache.Cache  // in-process fallback when Redis is down
	sessionCfg config.SessionConfig
	logger     logger.ILogger
}

func NewEntitlementService(
	uowFactory unitofwork.RepositoryFactory,
	rdb *redis.Client,
	sessionCfg config.SessionConfig,
	log logger.ILogger,
) IEntitlementService {
	return &entitlementService{
		uowFactory: uowFactory,
		rdb:        rdb,
		local:      cache.New(entitlementTTL, 10*time.Minute),
		sessionCfg: sessionCfg,
		logger:     log,
	}
}

func (s *entitlementService) Check(ctx context.Context, userId uuid.UUID) (*Entitlement, error) {
	key := "entitlement:" + userId.String()

	if ent := s.fromCache(ctx, key); ent != nil {
		return ent, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}

	var ent *Entitlement
	if user == nil {
		ent = &Entitlement{Allowed: false, Reason: "unknown_user"}
	} else {
		maxDuration := s.sessionCfg.FreeMaxDurationSeconds
		if user.Plan == constant.UserPlanPro {
			maxDuration = s.sessionCfg.ProMaxDurationSeconds
		}
		ent = &Entitlement{
			Allowed:            true,
			MaxDurationSeconds: maxDuration,
			AttemptLimitExempt: user.Role == constant.UserRoleAdmin,
		}
	}

	s.store(ctx, key, ent)
	return ent, nil
}

func (s *entitlementService) fromCache(ctx context.Context, key string) *Entitlement {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var ent Entitlement
			if err := json.Unmarshal([]byte(raw), &ent); err == nil {
				return &ent
			}
		} else if err != redis.Nil {
			s.logger.Warn("EntitlementService", "Redis read failed, using local cache", map[string]interface{}{"error": err.Error()})
		}
	}

	if x, found := s.local.Get(key); found {
		return x.(*Entitlement)
	}
	return nil
}

func (s *entitlementService) store(ctx context.Context, key string, ent *Entitlement) {
	s.local.Set(key, ent, cache.DefaultExpiration)

	if s.rdb != nil {
		raw, _ := json.Marshal(ent)
		if err := s.rdb.Set(ctx, key, raw, entitlementTTL).Err(); err != nil {
			s.logger.Warn("EntitlementService", "Redis write failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
