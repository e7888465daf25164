package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// LiveRun tracks one in-flight orchestrator invocation for a session. The
// gateway consults it before persisting results: if the session left the
// eligible states while the run was in flight, the results are discarded.
type LiveRun struct {
	SessionID string
	UserID    string
	StartedAt time.Time
}

type LiveRunRepository struct {
	cache *cache.Cache
}

func NewLiveRunRepository() *LiveRunRepository {
	// Entries self-expire well past any plausible run duration so crashed
	// requests cannot leak registry slots.
	c := cache.New(10*time.Minute, 5*time.Minute)
	return &LiveRunRepository{
		cache: c,
	}
}

func (r *LiveRunRepository) Save(run *LiveRun) {
	r.cache.Set(run.SessionID, run, cache.DefaultExpiration)
}

func (r *LiveRunRepository) Get(sessionID string) (*LiveRun, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*LiveRun), true
	}
	return nil, false
}

func (r *LiveRunRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
