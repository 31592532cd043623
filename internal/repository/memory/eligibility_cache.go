package memory

import (
	"time"

	"courseflow-be/pkg/refund/lifecycle"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// EligibilityCache keeps recent eligibility previews so repeated checks
// from the refund form do not hit the database. Entries are short-lived
// because progress keeps moving while the learner studies.
type EligibilityCache struct {
	cache *cache.Cache
}

func NewEligibilityCache(ttl time.Duration) *EligibilityCache {
	c := cache.New(ttl, 10*time.Minute)
	return &EligibilityCache{
		cache: c,
	}
}

func key(userID, orderID uuid.UUID) string {
	return userID.String() + "|" + orderID.String()
}

func (r *EligibilityCache) Save(userID, orderID uuid.UUID, preview *lifecycle.EligibilityPreview) {
	r.cache.Set(key(userID, orderID), preview, cache.DefaultExpiration)
}

func (r *EligibilityCache) Get(userID, orderID uuid.UUID) (*lifecycle.EligibilityPreview, bool) {
	if x, found := r.cache.Get(key(userID, orderID)); found {
		return x.(*lifecycle.EligibilityPreview), true
	}
	return nil, false
}

func (r *EligibilityCache) Invalidate(userID, orderID uuid.UUID) {
	r.cache.Delete(key(userID, orderID))
}
