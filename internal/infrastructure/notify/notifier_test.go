package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lllypuk/useradmin/internal/infrastructure/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBus struct{}

func (failingBus) Publish(context.Context, notify.Notification) error {
	return errors.New("redis down")
}

func (failingBus) Subscribe(notify.Handler) error { return nil }
func (failingBus) Start(context.Context) error    { return nil }
func (failingBus) Shutdown() error                { return nil }

type countingObserver struct {
	kinds []string
}

func (o *countingObserver) ObserveNotification(kind string) {
	o.kinds = append(o.kinds, kind)
}

func TestNotifier_PublishesKinds(t *testing.T) {
	bus := notify.NewInMemoryBus(nil)
	observer := &countingObserver{}
	notifier := notify.NewNotifier(bus, nil, observer)

	var got []notify.Notification
	require.NoError(t, bus.Subscribe(func(_ context.Context, n notify.Notification) error {
		got = append(got, n)
		return nil
	}))

	notifier.Success(context.Background(), "v1", "ok", "done")
	notifier.Error(context.Background(), "v2", "fail", "oops")

	require.Len(t, got, 2)
	assert.Equal(t, notify.KindSuccess, got[0].Kind)
	assert.Equal(t, "v1", got[0].ViewID)
	assert.Equal(t, "done", got[0].Description)
	assert.Equal(t, notify.KindError, got[1].Kind)
	assert.Equal(t, "v2", got[1].ViewID)
	assert.Equal(t, []string{"success", "error"}, observer.kinds)
}

func TestNotifier_SwallowsPublishErrors(t *testing.T) {
	observer := &countingObserver{}
	notifier := notify.NewNotifier(failingBus{}, nil, observer)

	assert.NotPanics(t, func() {
		notifier.Error(context.Background(), "v1", "fail", "oops")
	})
	assert.Empty(t, observer.kinds)
}
