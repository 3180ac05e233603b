package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/app/models"
)

type fakeEventRepo struct {
	events    map[string]*models.PaymentEvent
	nextID    uint
	processed map[uint]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:    make(map[string]*models.PaymentEvent),
		processed: make(map[uint]string),
	}
}

func (r *fakeEventRepo) CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeEventRepo) MarkEventProcessed(id uint, processingError string) error {
	r.processed[id] = processingError
	return nil
}

func TestRecordEventIsIdempotent(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo)

	in := EventInput{
		Provider:        "Stripe",
		ProviderEventID: "evt_1",
		EventType:       "payment.succeeded",
		TransactionID:   "tx_1",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, first, err := svc.RecordEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "stripe", first.Provider)
	assert.Equal(t, "tx_1", first.TransactionID)

	created, second, err := svc.RecordEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordEventHashesMissingEventID(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo)

	in := EventInput{
		Provider:    "stripe",
		EventType:   "payment.succeeded",
		PayloadJSON: `{"transaction_id":"tx_2"}`,
	}

	created, event, err := svc.RecordEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, event.ProviderEventID, "hash:")

	// Same payload must map to the same synthetic event id.
	created, replay, err := svc.RecordEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, event.ProviderEventID, replay.ProviderEventID)
}

func TestRecordEventRequiresProvider(t *testing.T) {
	svc := NewService(newFakeEventRepo())
	_, _, err := svc.RecordEvent(context.Background(), EventInput{PayloadJSON: "{}"})
	assert.Error(t, err)
}

func TestMarkProcessed(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo)

	require.NoError(t, svc.MarkProcessed(context.Background(), 7, nil))
	assert.Equal(t, "", repo.processed[7])

	require.NoError(t, svc.MarkProcessed(context.Background(), 8, assert.AnError))
	assert.Equal(t, assert.AnError.Error(), repo.processed[8])

	assert.Error(t, svc.MarkProcessed(context.Background(), 0, nil))
}
