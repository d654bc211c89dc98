package usertable_test

import (
	"context"
	"testing"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	"github.com/lllypuk/useradmin/internal/domain/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	api := newFakeAPI(sampleUsers()...)
	registry := usertable.NewRegistry(usertable.Dependencies{API: api, Notifier: &recordingNotifier{}})

	ctrl := registry.Create()
	require.NotEmpty(t, ctrl.ID())

	got, err := registry.Get(ctrl.ID())
	require.NoError(t, err)
	assert.Same(t, ctrl, got)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_UnknownView(t *testing.T) {
	registry := usertable.NewRegistry(usertable.Dependencies{})

	_, err := registry.Get("missing")

	require.ErrorIs(t, err, usertable.ErrViewNotFound)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRegistry_ViewsAreIndependent(t *testing.T) {
	api := newFakeAPI(sampleUsers()...)
	registry := usertable.NewRegistry(usertable.Dependencies{API: api, Notifier: &recordingNotifier{}})

	first := registry.Create()
	second := registry.Create()
	require.NotEqual(t, first.ID(), second.ID())

	require.NoError(t, first.Wait(context.Background()))
	require.NoError(t, first.DeleteUser(context.Background(), 1))

	// A reload is a new view: fresh state and a fresh fetch
	require.NoError(t, second.Wait(context.Background()))
	assert.Len(t, first.Snapshot().Users, 2)
	assert.Len(t, second.Snapshot().Users, 3)
	assert.Equal(t, 2, api.ListCalls())
}

func TestRegistry_EvictsOldest(t *testing.T) {
	observer := &recordingObserver{}
	var evicted []string
	registry := usertable.NewRegistry(usertable.Dependencies{},
		usertable.WithMaxViews(2),
		usertable.WithViewObserver(observer),
		usertable.WithEvictHook(func(id string) { evicted = append(evicted, id) }),
	)

	a := registry.Create()
	b := registry.Create()
	c := registry.Create()

	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []string{a.ID()}, evicted)
	assert.Equal(t, 2, observer.views)

	_, err := registry.Get(a.ID())
	require.ErrorIs(t, err, usertable.ErrViewNotFound)

	for _, ctrl := range []*usertable.Controller{b, c} {
		_, err = registry.Get(ctrl.ID())
		require.NoError(t, err)
	}
}
