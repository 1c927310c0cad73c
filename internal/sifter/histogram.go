package sifter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PointsSuffix is appended to the model name for histogram files.
const PointsSuffix = "_points.json"

// ErrInvalidModel is returned for model names that cannot be used as a
// histogram file name.
var ErrInvalidModel = errors.New("invalid model name")

// CheckModelName rejects names that are empty or would resolve outside the
// histogram folder.
func CheckModelName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidModel, name)
	}
	return nil
}

// Histogram counts keypoint hits per vertex id, per model. It is not safe
// for concurrent use; give each worker its own and Merge them.
type Histogram struct {
	counts map[string]map[int]int
	order  []string // models in order of first sight
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[string]map[int]int)}
}

func (h *Histogram) model(name string) (map[int]int, bool) {
	m, ok := h.counts[name]
	if !ok {
		m = make(map[int]int)
		h.counts[name] = m
		h.order = append(h.order, name)
	}
	return m, ok
}

// Observe records that an annotation of model lists the given vertex ids.
// The first observation of a model initializes all of them to zero; later
// observations leave existing counts untouched.
func (h *Histogram) Observe(model string, ids []int) {
	m, seen := h.model(model)
	if seen {
		return
	}
	for _, id := range ids {
		m[id] = 0
	}
}

// Add counts one hit for vertex id of model.
func (h *Histogram) Add(model string, id int) {
	m, _ := h.model(model)
	m[id]++
}

// Merge adds every count of other into h. Models and ids unknown to h
// are added.
func (h *Histogram) Merge(other *Histogram) {
	for _, name := range other.order {
		m, _ := h.model(name)
		for id, n := range other.counts[name] {
			m[id] += n
		}
	}
}

// Models returns the model names in order of first sight.
func (h *Histogram) Models() []string {
	return append([]string(nil), h.order...)
}

// Counts returns a copy of the counts for model, or nil if unknown.
func (h *Histogram) Counts(model string) map[int]int {
	m, ok := h.counts[model]
	if !ok {
		return nil
	}
	out := make(map[int]int, len(m))
	for id, n := range m {
		out[id] = n
	}
	return out
}

// Total returns the number of hits recorded for model.
func (h *Histogram) Total(model string) int {
	total := 0
	for _, n := range h.counts[model] {
		total += n
	}
	return total
}

// VertexCount is one histogram entry.
type VertexCount struct {
	ID    int
	Count int
}

// Rank orders counts by descending hits, then ascending id.
func Rank(counts map[int]int) []VertexCount {
	out := make([]VertexCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, VertexCount{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Top returns the k most hit vertices of model; k <= 0 returns all.
func (h *Histogram) Top(model string, k int) []VertexCount {
	ranked := Rank(h.counts[model])
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Save writes one <model>_points.json file per model into dir and returns
// the written paths.
func (h *Histogram) Save(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating histogram dir: %w", err)
	}

	paths := make([]string, 0, len(h.order))
	for _, name := range h.order {
		if err := CheckModelName(name); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, name+PointsSuffix)
		if err := os.WriteFile(path, encodeCounts(h.counts[name]), 0644); err != nil {
			return paths, fmt.Errorf("writing histogram %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// encodeCounts writes compact JSON with string keys in numeric id order.
func encodeCounts(counts map[int]int) []byte {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(id))
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(counts[id]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// LoadCounts reads a histogram file written by Save.
func LoadCounts(path string) (map[int]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading histogram: %w", err)
	}

	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing histogram %s: %w", path, err)
	}

	counts := make(map[int]int, len(raw))
	for key, n := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("parsing histogram %s: vertex id %q", path, key)
		}
		counts[id] = n
	}
	return counts, nil
}
