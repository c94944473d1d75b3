package dispatcher

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/adapters/broker/inproc"
	"datamart/adapters/catalog/memory"
	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/ports"
	"datamart/profiler"
)

type fakeOpener struct {
	body string
	err  error
}

func (o fakeOpener) Open(ctx context.Context, msg ports.ProfileMessage) (io.ReadCloser, int64, error) {
	if o.err != nil {
		return nil, 0, o.err
	}
	return io.NopCloser(strings.NewReader(o.body)), int64(len(o.body)), nil
}

func TestDispatcherUpsertsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := inproc.New()
	catalog := memory.NewCatalog()
	p := profiler.New(nil, nil)
	d := New(broker, catalog, p, fakeOpener{body: "x,y\n1,2\n3,4\n"})

	id := dataset.NewId("src", "a")
	require.NoError(t, broker.PublishProfile(ctx, ports.ProfileMessage{
		ID:         core.NewMessageID(),
		DatasetID:  id,
		Descriptor: dataset.DatasetDescriptor{Name: "a", Materialize: dataset.Materialize{Identifier: "src", SourceLocalID: "a"}},
		Priority:   ports.PriorityNormal,
	}))

	events, unsubscribe := broker.SubscribeDatasetEvents(ctx)
	defer unsubscribe()

	go d.Run(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, id, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dataset event")
	}

	stored, err := catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.NbRows)
}

func TestDispatcherRepublishesOnFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := inproc.New()
	catalog := memory.NewCatalog()
	p := profiler.New(nil, nil)
	d := New(broker, catalog, p, fakeOpener{err: errors.New("source unreachable")})

	id := dataset.NewId("src", "broken")
	msg := ports.ProfileMessage{
		ID:         core.NewMessageID(),
		DatasetID:  id,
		Descriptor: dataset.DatasetDescriptor{Name: "broken"},
		Priority:   ports.PriorityNormal,
	}
	require.NoError(t, broker.PublishProfile(ctx, msg))

	go d.Run(ctx)

	select {
	case failed := <-broker.Failed():
		assert.Equal(t, id, failed.DatasetID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for failed message")
	}

	_, err := catalog.Get(ctx, id)
	assert.Error(t, err)
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	assert.Equal(t, int64(2), int64(MaxConcurrent))
}
