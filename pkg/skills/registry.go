package skills

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyID is reported for records without an id
	ErrEmptyID = errors.New("skill id is empty")
	// ErrDuplicateID is reported when two records share an id
	ErrDuplicateID = errors.New("duplicate skill id")
	// ErrDanglingDependency is reported when a dependency names an unknown id
	ErrDanglingDependency = errors.New("dangling dependency")
)

// ValidationError aggregates every problem found while building a Registry.
type ValidationError struct {
	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	return "invalid skill registry: " + e.errs.Error()
}

// Unwrap exposes the aggregated errors so errors.Is matches the sentinels.
func (e *ValidationError) Unwrap() error {
	return e.errs
}

// Problems returns the individual validation failures in detection order
func (e *ValidationError) Problems() []error {
	return e.errs.WrappedErrors()
}

// Kind identifies which field of a record produced an index key
type Kind int

const (
	// KindName is the record id or display name
	KindName Kind = iota
	// KindAlias is one of the record aliases
	KindAlias
	// KindTag is one of the record tags
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindAlias:
		return "alias"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// IndexEntry points an index key at the record it came from
type IndexEntry struct {
	SkillID string
	Kind    Kind
}

// Registry is an immutable snapshot of validated skill records. It is safe for
// concurrent use; nothing is mutated after NewRegistry returns.
type Registry struct {
	id       string
	loadedAt time.Time

	records  []Record
	byID     map[string]int
	index    map[string][]IndexEntry
	keys     []string
	tagPeers map[string]int
}

// NewRegistry validates records and freezes them into a Registry. Empty ids,
// duplicate ids and dependencies on unknown ids are all reported together in a
// *ValidationError.
func NewRegistry(records []Record) (*Registry, error) {
	var merr *multierror.Error

	normalized := make([]Record, 0, len(records))
	byID := make(map[string]int, len(records))
	for i, rec := range records {
		rec = rec.normalized()
		if rec.ID == "" {
			merr = multierror.Append(merr, errors.Wrapf(ErrEmptyID, "record %d%s", i, sourceSuffix(rec)))
			continue
		}
		if prev, ok := byID[rec.ID]; ok {
			merr = multierror.Append(merr, errors.Wrapf(ErrDuplicateID, "%q defined by records %d and %d%s",
				rec.ID, prev, i, sourceSuffix(rec)))
			continue
		}
		byID[rec.ID] = i
		normalized = append(normalized, rec)
	}

	// Re-key by position in the normalized slice
	for i, rec := range normalized {
		byID[rec.ID] = i
	}

	for _, rec := range normalized {
		for _, dep := range rec.Dependencies {
			if _, ok := byID[dep]; !ok {
				merr = multierror.Append(merr, errors.Wrapf(ErrDanglingDependency, "%q depends on unknown skill %q", rec.ID, dep))
			}
		}
	}

	if merr != nil {
		merr.ErrorFormat = joinErrors
		return nil, &ValidationError{errs: merr}
	}

	r := &Registry{
		id:       uuid.New().String(),
		loadedAt: time.Now(),
		records:  normalized,
		byID:     byID,
	}
	r.buildIndex()
	r.countTagPeers()
	return r, nil
}

func sourceSuffix(rec Record) string {
	if rec.Source == "" {
		return ""
	}
	return " in " + rec.Source
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (r *Registry) buildIndex() {
	r.index = make(map[string][]IndexEntry)
	add := func(key string, entry IndexEntry) {
		if key == "" {
			return
		}
		for _, existing := range r.index[key] {
			if existing == entry {
				return
			}
		}
		r.index[key] = append(r.index[key], entry)
	}

	for _, rec := range r.records {
		add(strings.ToLower(rec.ID), IndexEntry{SkillID: rec.ID, Kind: KindName})
		add(nameKey(rec.DisplayName), IndexEntry{SkillID: rec.ID, Kind: KindName})
		for _, alias := range rec.Aliases {
			add(alias, IndexEntry{SkillID: rec.ID, Kind: KindAlias})
		}
		for _, tag := range rec.Tags {
			add(tag, IndexEntry{SkillID: rec.ID, Kind: KindTag})
		}
	}

	r.keys = make([]string, 0, len(r.index))
	for key, entries := range r.index {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].SkillID != entries[j].SkillID {
				return entries[i].SkillID < entries[j].SkillID
			}
			return entries[i].Kind < entries[j].Kind
		})
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
}

// countTagPeers records, per skill, how many skills (itself included) share at
// least one tag with it. Untagged skills have a count of one.
func (r *Registry) countTagPeers() {
	byTag := make(map[string][]int)
	for i, rec := range r.records {
		for _, tag := range rec.Tags {
			byTag[tag] = append(byTag[tag], i)
		}
	}

	r.tagPeers = make(map[string]int, len(r.records))
	for i, rec := range r.records {
		peers := map[int]bool{i: true}
		for _, tag := range rec.Tags {
			for _, j := range byTag[tag] {
				peers[j] = true
			}
		}
		r.tagPeers[rec.ID] = len(peers)
	}
}

// ID returns the snapshot id assigned when the registry was built
func (r *Registry) ID() string {
	return r.id
}

// LoadedAt returns when the registry was built
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}

// Len returns the number of records
func (r *Registry) Len() int {
	return len(r.records)
}

// Get returns a copy of the record with the given id
func (r *Registry) Get(id string) (Record, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Record{}, false
	}
	return r.records[i].clone(), true
}

// Has reports whether a record with the given id exists
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Dependencies returns the declared dependencies of a skill in order
func (r *Registry) Dependencies(id string) []string {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return append([]string(nil), r.records[i].Dependencies...)
}

// Records returns copies of all records in load order
func (r *Registry) Records() []Record {
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}
	return out
}

// IDs returns all skill ids sorted lexicographically
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.records))
	for i, rec := range r.records {
		ids[i] = rec.ID
	}
	sort.Strings(ids)
	return ids
}

// Keys returns every index key in sorted order
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Lookup returns the index entries for a lowercased key
func (r *Registry) Lookup(key string) []IndexEntry {
	return append([]IndexEntry(nil), r.index[key]...)
}

// TagPeers returns how many skills share at least one tag with id, or zero if
// the id is unknown.
func (r *Registry) TagPeers(id string) int {
	return r.tagPeers[id]
}
