package skills

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{ID: "cleanup", Aliases: []string{"clnup", " Tidy ", "tidy"}, Tags: []string{"Refactor"}, Dependencies: []string{"detect-smells"}},
		{ID: "detect-smells", DisplayName: "Detect Smells", Tags: []string{"refactor", "quality"}},
		{ID: "deploy", Tags: []string{"ops"}},
		{ID: "docs"},
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	assert.NotEmpty(t, reg.ID())
	assert.False(t, reg.LoadedAt().IsZero())
	assert.Equal(t, 4, reg.Len())
	assert.Equal(t, []string{"cleanup", "deploy", "detect-smells", "docs"}, reg.IDs())

	rec, ok := reg.Get("cleanup")
	require.True(t, ok)
	assert.Equal(t, []string{"clnup", "tidy"}, rec.Aliases, "aliases are trimmed, lowercased and de-duplicated")
	assert.Equal(t, []string{"refactor"}, rec.Tags)
	assert.Equal(t, []string{"detect-smells"}, reg.Dependencies("cleanup"))

	assert.True(t, reg.Has("docs"))
	assert.False(t, reg.Has("Docs"), "ids are case sensitive")
	_, ok = reg.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, reg.Dependencies("missing"))
}

func TestNewRegistryAssignsFreshSnapshotIDs(t *testing.T) {
	a, err := NewRegistry(sampleRecords())
	require.NoError(t, err)
	b, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name     string
		records  []Record
		sentinel error
		message  string
	}{
		{
			name:     "empty id",
			records:  []Record{{ID: "  ", Source: "skills/a/SKILL.md"}},
			sentinel: ErrEmptyID,
			message:  "record 0 in skills/a/SKILL.md: skill id is empty",
		},
		{
			name:     "duplicate id",
			records:  []Record{{ID: "a"}, {ID: "a"}},
			sentinel: ErrDuplicateID,
			message:  `"a" defined by records 0 and 1: duplicate skill id`,
		},
		{
			name:     "dangling dependency",
			records:  []Record{{ID: "a", Dependencies: []string{"ghost"}}},
			sentinel: ErrDanglingDependency,
			message:  `"a" depends on unknown skill "ghost": dangling dependency`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.records)
			require.Error(t, err)
			assert.Nil(t, reg)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.ErrorIs(t, err, tt.sentinel)
			require.Len(t, verr.Problems(), 1)
			assert.Equal(t, tt.message, verr.Problems()[0].Error())
			assert.Equal(t, "invalid skill registry: "+tt.message, err.Error())
		})
	}
}

func TestNewRegistryReportsEveryProblem(t *testing.T) {
	_, err := NewRegistry([]Record{
		{ID: "a", Dependencies: []string{"x"}},
		{ID: "a"},
		{ID: ""},
		{ID: "b", Dependencies: []string{"y"}},
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems(), 4)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, ErrEmptyID)
	assert.ErrorIs(t, err, ErrDanglingDependency)
}

func TestNewRegistryAllowsCycles(t *testing.T) {
	reg, err := NewRegistry([]Record{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryIndex(t *testing.T) {
	reg, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, []IndexEntry{{SkillID: "cleanup", Kind: KindName}}, reg.Lookup("cleanup"))
	assert.Equal(t, []IndexEntry{{SkillID: "cleanup", Kind: KindAlias}}, reg.Lookup("clnup"))
	assert.Equal(t, []IndexEntry{{SkillID: "detect-smells", Kind: KindName}}, reg.Lookup("detect-smells"),
		"id and hyphen-joined display name share one entry")
	assert.Equal(t, []IndexEntry{
		{SkillID: "cleanup", Kind: KindTag},
		{SkillID: "detect-smells", Kind: KindTag},
	}, reg.Lookup("refactor"))
	assert.Empty(t, reg.Lookup("Refactor"), "keys are lowercased")

	keys := reg.Keys()
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "ops")
	assert.Contains(t, keys, "tidy")
}

func TestRegistryTagPeers(t *testing.T) {
	reg, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, 2, reg.TagPeers("cleanup"))
	assert.Equal(t, 2, reg.TagPeers("detect-smells"))
	assert.Equal(t, 1, reg.TagPeers("deploy"))
	assert.Equal(t, 1, reg.TagPeers("docs"), "untagged skills count only themselves")
	assert.Equal(t, 0, reg.TagPeers("missing"))
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	rec, _ := reg.Get("cleanup")
	rec.Aliases[0] = "mutated"
	rec.Dependencies[0] = "mutated"

	records := reg.Records()
	records[0].Tags[0] = "mutated"

	deps := reg.Dependencies("cleanup")
	deps[0] = "mutated"

	again, _ := reg.Get("cleanup")
	assert.Equal(t, []string{"clnup", "tidy"}, again.Aliases)
	assert.Equal(t, []string{"refactor"}, again.Tags)
	assert.Equal(t, []string{"detect-smells"}, again.Dependencies)
}

func TestRegistryConcurrentReads(t *testing.T) {
	reg, err := NewRegistry(sampleRecords())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, key := range reg.Keys() {
				for _, entry := range reg.Lookup(key) {
					_, ok := reg.Get(entry.SkillID)
					assert.True(t, ok)
				}
			}
		}()
	}
	wg.Wait()
}

func TestMetadataRecord(t *testing.T) {
	tests := []struct {
		name     string
		meta     Metadata
		expected Record
	}{
		{
			name:     "name only",
			meta:     Metadata{Name: "cleanup"},
			expected: Record{ID: "cleanup"},
		},
		{
			name:     "id and name",
			meta:     Metadata{ID: "detect-smells", Name: "Detect Smells"},
			expected: Record{ID: "detect-smells", DisplayName: "Detect Smells"},
		},
		{
			name:     "explicit display name wins",
			meta:     Metadata{ID: "a", Name: "Alpha", DisplayName: "The Alpha"},
			expected: Record{ID: "a", DisplayName: "The Alpha"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.meta.Record())
		})
	}
}
