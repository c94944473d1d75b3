// Package fake is an in-memory ports.SketchIndex used by tests in
// place of the real similarity-sketch service, estimating overlap with
// exact Jaccard similarity over the indexed value sets rather than a
// MinHash approximation.
package fake

import (
	"context"
	"sync"

	"datamart/domain/dataset"
	"datamart/ports"
)

type columnKey struct {
	datasetID dataset.Id
	column    string
}

// Index is an in-memory ports.SketchIndex. Zero value is ready to use.
type Index struct {
	mu   sync.RWMutex
	sets map[columnKey]map[string]struct{}
}

func New() *Index {
	return &Index{sets: make(map[columnKey]map[string]struct{})}
}

func (idx *Index) Index(_ context.Context, datasetID dataset.Id, columnName string, values []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.sets == nil {
		idx.sets = make(map[columnKey]map[string]struct{})
	}
	idx.sets[columnKey{datasetID, columnName}] = toSet(values)
	return nil
}

func (idx *Index) Sketch(_ context.Context, columns map[string][]string) (map[string]dataset.Lazo, error) {
	out := make(map[string]dataset.Lazo, len(columns))
	for name, values := range columns {
		set := toSet(values)
		out[name] = dataset.Lazo{
			Name:          name,
			NPermutations: 0,
			HashValues:    hashesOf(set),
			Cardinality:   len(set),
		}
	}
	return out, nil
}

func (idx *Index) Overlap(_ context.Context, probe dataset.Lazo, datasetID dataset.Id, columnName string) (float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	indexed, ok := idx.sets[columnKey{datasetID, columnName}]
	if !ok || len(indexed) == 0 || len(probe.HashValues) == 0 {
		return 0, nil
	}

	probeSet := make(map[uint64]struct{}, len(probe.HashValues))
	for _, h := range probe.HashValues {
		probeSet[h] = struct{}{}
	}
	indexedHashes := hashesOf(indexed)

	intersection := 0
	for _, h := range indexedHashes {
		if _, ok := probeSet[h]; ok {
			intersection++
		}
	}
	union := len(probeSet) + len(indexedHashes) - intersection
	if union == 0 {
		return 0, nil
	}
	return float64(intersection) / float64(union), nil
}

func (idx *Index) Purge(_ context.Context, datasetID dataset.Id) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for key := range idx.sets {
		if key.datasetID == datasetID {
			delete(idx.sets, key)
		}
	}
	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// hashesOf maps each distinct value to an fnv-1a hash so Sketch/Overlap
// can compare sets without exchanging raw values, mirroring the shape
// of a real Lazo sketch's hash_values.
func hashesOf(set map[string]struct{}) []uint64 {
	out := make([]uint64, 0, len(set))
	for v := range set {
		out = append(out, fnv1a(v))
	}
	return out
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
