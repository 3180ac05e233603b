package entitlements

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const grantChangedChannelPrefix = "entitlements:changed:"

// GrantChanged tells other live sessions of a user to re-run
// reconciliation for one question set.
type GrantChanged struct {
	UserID        uint `json:"user_id"`
	QuestionSetID uint `json:"question_set_id"`
}

// Publisher fans a grant change out to the user's connected sessions.
// Delivery is at-most-once with no ordering guarantee; subscribers
// compensate with reconnect-triggered reconciliation.
type Publisher interface {
	Publish(ctx context.Context, userID, questionSetID uint) error
}

// GrantChangedChannel returns the per-user pub/sub channel name.
func GrantChangedChannel(userID uint) string {
	return fmt.Sprintf("%s%d", grantChangedChannelPrefix, userID)
}

// RedisNotifier publishes GrantChanged events over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, userID, questionSetID uint) error {
	payload, err := json.Marshal(GrantChanged{UserID: userID, QuestionSetID: questionSetID})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, GrantChangedChannel(userID), payload).Err()
}

// DecisionObserver receives refreshed decisions for a question set.
type DecisionObserver func(questionSetID uint, decision GrantDecision)

// Subscriber is the client-side consumer of GrantChanged events for one
// authenticated user. On every event it re-runs the reconciler for the
// affected pair and republishes the decision to its observers. On every
// (re)connect it re-reconciles all watched sets, because a missed event
// on the at-most-once channel is otherwise invisible.
type Subscriber struct {
	client     *redis.Client
	reconciler *Reconciler
	userID     uint
	retryDelay time.Duration

	mu        sync.Mutex
	watched   map[uint]struct{}
	observers []DecisionObserver
}

// NewSubscriber creates a subscriber for the user's grant change channel.
func NewSubscriber(client *redis.Client, reconciler *Reconciler, userID uint) *Subscriber {
	return &Subscriber{
		client:     client,
		reconciler: reconciler,
		userID:     userID,
		retryDelay: 2 * time.Second,
		watched:    make(map[uint]struct{}),
	}
}

// Watch registers a question set currently open in the UI; it is included
// in every reconnect resync.
func (s *Subscriber) Watch(questionSetID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[questionSetID] = struct{}{}
}

// Unwatch removes a question set from the resync list.
func (s *Subscriber) Unwatch(questionSetID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, questionSetID)
}

// OnDecision registers an observer for refreshed decisions.
func (s *Subscriber) OnDecision(observer DecisionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Run consumes grant change events until the context is cancelled,
// re-subscribing with a delay after every dropped connection.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			log.Warnf("entitlement subscription for user %d dropped: %v", s.userID, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Subscriber) consume(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, GrantChangedChannel(s.userID))
	defer pubsub.Close()

	// Wait for the subscription confirmation before resyncing, so no gap
	// remains between the snapshot and the live stream.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	s.Resync(ctx)

	for {
		msg, err := pubsub.Receive(ctx)
		if err != nil {
			return err
		}
		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		var ev GrantChanged
		if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
			log.Warnf("malformed grant change event for user %d: %v", s.userID, err)
			continue
		}
		if ev.UserID != s.userID {
			continue
		}
		s.dispatch(ctx, ev.QuestionSetID)
	}
}

// Resync re-runs reconciliation for every watched question set. It is also
// the page-load entry point: a fresh session calls it once before relying
// on the event stream.
func (s *Subscriber) Resync(ctx context.Context) {
	for _, id := range s.watchedIDs() {
		s.dispatch(ctx, id)
	}
}

func (s *Subscriber) dispatch(ctx context.Context, questionSetID uint) {
	decision := s.reconciler.Reconcile(ctx, s.userID, questionSetID)

	s.mu.Lock()
	observers := make([]DecisionObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, observer := range observers {
		observer(questionSetID, decision)
	}
}

func (s *Subscriber) watchedIDs() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.watched))
	for id := range s.watched {
		ids = append(ids, id)
	}
	return ids
}
