// Package dispatcher implements the Work Dispatcher (C9): a
// broker-mediated consumer loop that bounds in-flight profiling work
// with a weighted semaphore and applies the success/failure handoff
// rule from §4.9.
package dispatcher

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/internal"
	"datamart/ports"
	"datamart/profiler"
)

// MaxConcurrent is the §4.9 semaphore size bounding in-flight
// profiling work per worker process.
const MaxConcurrent = 2

// SourceOpener resolves a ProfileMessage's raw bytes: a CSVPath into a
// bulk-dump extraction directory, or a Materialize-driven fetch for
// incremental sources.
type SourceOpener interface {
	Open(ctx context.Context, msg ports.ProfileMessage) (io.ReadCloser, int64, error)
}

// Dispatcher consumes ProfileMessages from the Broker, profiles each
// under a bounded semaphore, and applies the success/failure rule.
type Dispatcher struct {
	Broker   ports.Broker
	Catalog  ports.Catalog
	Profiler *profiler.Profiler
	Opener   SourceOpener
	Log      *internal.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func New(broker ports.Broker, catalog ports.Catalog, p *profiler.Profiler, opener SourceOpener) *Dispatcher {
	return &Dispatcher{
		Broker:   broker,
		Catalog:  catalog,
		Profiler: p,
		Opener:   opener,
		Log:      internal.DefaultLogger,
		sem:      semaphore.NewWeighted(MaxConcurrent),
	}
}

// Run consumes messages until ctx is canceled, handing each off to a
// worker goroutine once a semaphore ticket is acquired (prefetch 1: one
// message is held per consume call while its ticket is pending).
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		msg, err := d.Broker.ConsumeProfile(ctx)
		if err != nil {
			d.wg.Wait()
			return
		}

		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.wg.Wait()
			return
		}

		d.wg.Add(1)
		go func(msg ports.ProfileMessage) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.process(ctx, msg)
		}(msg)
	}
}

// process implements the §4.9 processing rule: profile, then on
// success upsert+publish, on failure republish to failed_profile.
func (d *Dispatcher) process(ctx context.Context, msg ports.ProfileMessage) {
	profile, err := d.profileOne(ctx, msg)
	if err != nil {
		d.Log.Error("dispatcher: profiling %s failed: %v", msg.DatasetID, err)
		d.Broker.PublishFailed(ctx, msg)
		return
	}

	profile.IndexedAt = core.Now()
	if err := d.Catalog.Put(ctx, profile); err != nil {
		d.Log.Error("dispatcher: catalog put for %s failed: %v", msg.DatasetID, err)
		d.Broker.PublishFailed(ctx, msg)
		return
	}

	d.Broker.PublishDatasetEvent(ctx, ports.DatasetEvent{ID: profile.ID, Profile: profile})
}

func (d *Dispatcher) profileOne(ctx context.Context, msg ports.ProfileMessage) (*dataset.Profile, error) {
	r, size, err := d.Opener.Open(ctx, msg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return d.Profiler.Profile(ctx, profiler.Input{
		ID:         msg.DatasetID,
		Descriptor: msg.Descriptor,
		Reader:     r,
		SizeBytes:  size,
		Mode:       profiler.ModeIndex,
	})
}

// FileOpener is a SourceOpener for bulk-dump CSVPath messages.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, msg ports.ProfileMessage) (io.ReadCloser, int64, error) {
	f, err := os.Open(msg.CSVPath)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// FetchOpener is a SourceOpener for incremental sources, fetching raw
// bytes straight from the source rather than a shared dump extraction.
type FetchOpener struct {
	Source ports.IncrementalSource
}

func (o FetchOpener) Open(ctx context.Context, msg ports.ProfileMessage) (io.ReadCloser, int64, error) {
	r, err := o.Source.Fetch(ctx, msg.Descriptor)
	if err != nil {
		return nil, 0, err
	}
	return r, 0, nil
}
