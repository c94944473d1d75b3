// Package discovery implements the Discovery Loop (C8): per-source
// reconciliation against the Catalog, submitting discovered datasets to
// the Work Dispatcher via the Broker's profile fanout exchange.
package discovery

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/internal"
	"datamart/ports"
)

// DefaultInterval is the fixed per-source reconciliation interval
// (§4.8) absent an override.
const DefaultInterval = 24 * time.Hour

// BulkDumpRunner reconciles one BulkDumpSource against the Catalog on a
// fixed interval.
type BulkDumpRunner struct {
	Source   ports.BulkDumpSource
	Pending  ports.PendingStore
	Catalog  ports.Catalog
	Broker   ports.Broker
	Interval time.Duration
	Log      *internal.Logger
}

func NewBulkDumpRunner(source ports.BulkDumpSource, pending ports.PendingStore, catalog ports.Catalog, broker ports.Broker) *BulkDumpRunner {
	return &BulkDumpRunner{
		Source:   source,
		Pending:  pending,
		Catalog:  catalog,
		Broker:   broker,
		Interval: DefaultInterval,
		Log:      internal.DefaultLogger,
	}
}

// Run loops forever, sleeping Interval between passes, until ctx is
// canceled (§5 "the discovery loop's sleep is cancelable").
func (r *BulkDumpRunner) Run(ctx context.Context) {
	for {
		if err := r.runPass(ctx); err != nil {
			r.Log.Error("discovery: bulk-dump pass failed for %s: %v", r.Source.Identifier(), err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.Interval):
		}
	}
}

// runPass executes steps 1-7 of §4.8's bulk-dump algorithm once.
func (r *BulkDumpRunner) runPass(ctx context.Context) error {
	identifier := r.Source.Identifier()

	prior, _, err := r.Pending.Get(ctx, identifier)
	if err != nil {
		return fmt.Errorf("discovery: load prior digest: %w", err)
	}

	dump, err := r.Source.OpenDump(ctx)
	if err != nil {
		return fmt.Errorf("discovery: open dump: %w", err)
	}
	defer dump.Close()

	tmpFile, err := os.CreateTemp("", identifier+"-dump-*.tar.gz")
	if err != nil {
		return fmt.Errorf("discovery: create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	digest := core.NewSha1Writer()
	if _, err := io.Copy(io.MultiWriter(tmpFile, digest), dump); err != nil {
		tmpFile.Close()
		return fmt.Errorf("discovery: stream dump: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("discovery: close temp file: %w", err)
	}

	newDigest := digest.Digest()
	if !prior.Sha1.IsEmpty() && prior.Sha1.Equals(newDigest) {
		return nil
	}

	extractedDir, err := os.MkdirTemp("", identifier+"-extracted-*")
	if err != nil {
		return fmt.Errorf("discovery: create extract dir: %w", err)
	}
	defer os.RemoveAll(extractedDir)

	if err := extractTarGz(tmpPath, extractedDir); err != nil {
		return fmt.Errorf("discovery: extract dump: %w", err)
	}

	listing, err := r.Source.Listing(ctx)
	if err != nil {
		return fmt.Errorf("discovery: fetch listing: %w", err)
	}

	seen := make(map[string]struct{}, len(listing))
	for _, descriptor := range listing {
		id := dataset.NewId(identifier, descriptor.SourceLocalID)
		seen[descriptor.SourceLocalID] = struct{}{}

		csvPath := r.Source.ExtractedCSVPath(extractedDir, descriptor)
		msg := ports.ProfileMessage{
			ID:         core.NewMessageID(),
			DatasetID:  id,
			Descriptor: descriptor,
			CSVPath:    csvPath,
			Priority:   ports.PriorityNormal,
		}
		if err := r.Broker.PublishProfile(ctx, msg); err != nil {
			r.Log.Error("discovery: submit %s failed: %v", id, err)
		}
	}

	if err := r.reconcileDeletions(ctx, identifier, seen); err != nil {
		r.Log.Error("discovery: reconcile deletions for %s: %v", identifier, err)
	}

	return r.Pending.Put(ctx, dataset.PendingRecord{SourceIdentifier: identifier, Sha1: newDigest})
}

// reconcileDeletions implements §4.8 step 6: scan the Catalog for every
// document belonging to this source and delete any whose
// source_local_id wasn't in the fresh listing.
func (r *BulkDumpRunner) reconcileDeletions(ctx context.Context, identifier string, seen map[string]struct{}) error {
	existing, err := r.Catalog.Scan(ctx, ports.ScanFilter{SourceIdentifier: identifier})
	if err != nil {
		return err
	}
	for _, p := range existing {
		if _, ok := seen[p.Materialize.SourceLocalID]; ok {
			continue
		}
		if err := r.Catalog.Delete(ctx, p.ID); err != nil {
			r.Log.Error("discovery: delete stale profile %s: %v", p.ID, err)
		}
	}
	return nil
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		cleanDest := filepath.Clean(destDir)
		target := filepath.Join(cleanDest, filepath.Clean(hdr.Name))
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("discovery: tar entry %q escapes destination directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

// IncrementalRunner reconciles one IncrementalSource against the
// Catalog on a fixed interval, comparing updatedAt timestamps.
type IncrementalRunner struct {
	Source  ports.IncrementalSource
	Catalog ports.Catalog
	Broker  ports.Broker
	Log     *internal.Logger
}

func NewIncrementalRunner(source ports.IncrementalSource, catalog ports.Catalog, broker ports.Broker) *IncrementalRunner {
	return &IncrementalRunner{Source: source, Catalog: catalog, Broker: broker, Log: internal.DefaultLogger}
}

func (r *IncrementalRunner) Run(ctx context.Context) {
	interval := r.Source.CheckInterval()
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		if err := r.runPass(ctx); err != nil {
			r.Log.Error("discovery: incremental pass failed for %s: %v", r.Source.Identifier(), err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// runPass implements §4.8's incremental-source algorithm: list, compare
// updatedAt against the existing Profile's materialize.updated, and
// submit only what changed.
func (r *IncrementalRunner) runPass(ctx context.Context) error {
	identifier := r.Source.Identifier()

	descriptors, err := r.Source.List(ctx)
	if err != nil {
		return fmt.Errorf("discovery: list: %w", err)
	}

	for _, descriptor := range descriptors {
		id := dataset.NewId(identifier, descriptor.SourceLocalID)

		existing, err := r.Catalog.Get(ctx, id)
		if err == nil && descriptor.Materialize.Updated != "" && descriptor.Materialize.Updated <= existing.Materialize.Updated {
			continue
		}

		msg := ports.ProfileMessage{
			ID:         core.NewMessageID(),
			DatasetID:  id,
			Descriptor: descriptor,
			Priority:   ports.PriorityNormal,
		}
		if err := r.Broker.PublishProfile(ctx, msg); err != nil {
			r.Log.Error("discovery: submit %s failed: %v", id, err)
		}
	}
	return nil
}
