package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory Repository with switchable failure modes.
type fakeStore struct {
	mu      sync.Mutex
	sets    map[uint]*models.QuestionSet
	grants  []models.Grant
	codes   map[string]*models.RedeemCode
	nextID  uint
	down    bool
	failFor int // fail this many calls, then recover
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sets:  make(map[uint]*models.QuestionSet),
		codes: make(map[string]*models.RedeemCode),
	}
}

func (s *fakeStore) addSet(set *models.QuestionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.ID] = set
}

func (s *fakeStore) addGrant(g models.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.grants = append(s.grants, g)
}

func (s *fakeStore) addCode(rc *models.RedeemCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rc.ID = s.nextID
	s.codes[rc.Code] = rc
}

func (s *fakeStore) grantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}

// checkDown must be called with the lock held.
func (s *fakeStore) checkDown() error {
	if s.down {
		return errStoreDown
	}
	if s.failFor > 0 {
		s.failFor--
		return errStoreDown
	}
	return nil
}

func (s *fakeStore) GetQuestionSet(_ context.Context, id uint) (*models.QuestionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDown(); err != nil {
		return nil, err
	}
	set, ok := s.sets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *set
	return &copied, nil
}

func (s *fakeStore) FindGrants(_ context.Context, userID, questionSetID uint) ([]models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDown(); err != nil {
		return nil, err
	}
	var out []models.Grant
	for _, g := range s.grants {
		if g.UserID == userID && g.QuestionSetID == questionSetID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *fakeStore) FindGrantByOriginID(_ context.Context, originID string) (*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDown(); err != nil {
		return nil, err
	}
	for _, g := range s.grants {
		if g.OriginID == originID {
			copied := g
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) InsertGrantIfAbsent(_ context.Context, grant *models.Grant) (*models.Grant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDown(); err != nil {
		return nil, false, err
	}
	return s.insertLocked(grant)
}

func (s *fakeStore) insertLocked(grant *models.Grant) (*models.Grant, bool, error) {
	for _, g := range s.grants {
		if g.OriginID == grant.OriginID {
			copied := g
			return &copied, false, nil
		}
	}
	s.nextID++
	stored := *grant
	stored.ID = s.nextID
	s.grants = append(s.grants, stored)
	copied := stored
	return &copied, true, nil
}

func (s *fakeStore) ConsumeRedeemCode(_ context.Context, code string, userID uint, now time.Time) (*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDown(); err != nil {
		return nil, err
	}
	rc, ok := s.codes[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrRedeemCodeNotFound
	}
	if rc.Consumed() {
		return nil, ErrRedeemCodeConsumed
	}
	rc.ConsumedByUserID = &userID
	rc.ConsumedAt = &now

	validity := time.Duration(rc.ValidityDays) * 24 * time.Hour
	if validity <= 0 {
		validity = DefaultValidityWindow
	}
	expiresAt := now.Add(validity)
	grant, _, err := s.insertLocked(&models.Grant{
		UserID:        userID,
		QuestionSetID: rc.QuestionSetID,
		Source:        models.GrantSourceRedeemCode,
		OriginID:      "code:" + rc.Code,
		ExpiresAt:     &expiresAt,
	})
	return grant, err
}

// fakeCache is an in-memory DecisionCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	gen     map[uint]uint64
	down    bool
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]*CacheEntry),
		gen:     make(map[uint]uint64),
	}
}

func cacheTestKey(userID, questionSetID uint) string {
	return fmt.Sprintf("%d:%d", userID, questionSetID)
}

func (c *fakeCache) Get(_ context.Context, userID, questionSetID uint) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errStoreDown
	}
	entry, ok := c.entries[cacheTestKey(userID, questionSetID)]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (c *fakeCache) Put(_ context.Context, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStoreDown
	}
	copied := *entry
	c.entries[cacheTestKey(entry.UserID, entry.QuestionSetID)] = &copied
	c.puts++
	return nil
}

func (c *fakeCache) NextGeneration(_ context.Context, userID uint) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return 0, errStoreDown
	}
	c.gen[userID]++
	return c.gen[userID], nil
}

func (c *fakeCache) entry(userID, questionSetID uint) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[cacheTestKey(userID, questionSetID)]
}

// fakePublisher records published grant changes.
type fakePublisher struct {
	mu     sync.Mutex
	events []GrantChanged
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, userID, questionSetID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, GrantChanged{UserID: userID, QuestionSetID: questionSetID})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestReconciler(store *fakeStore, cache *fakeCache, now time.Time) *Reconciler {
	return &Reconciler{
		repo:            store,
		cache:           cache,
		storeTimeout:    time.Second,
		stalenessWindow: DefaultStalenessWindow,
		now:             func() time.Time { return now },
	}
}

func newTestFinalizer(store *fakeStore, reconciler *Reconciler, notifier Publisher, now time.Time) *Finalizer {
	return &Finalizer{
		repo:       store,
		reconciler: reconciler,
		notifier:   notifier,
		attempts:   DefaultFinalizeAttempts,
		backoff:    time.Millisecond,
		validity:   DefaultValidityWindow,
		now:        func() time.Time { return now },
	}
}
