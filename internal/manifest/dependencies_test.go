package manifest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalSets_ScopedLibrary(t *testing.T) {
	m, err := Parse([]byte(scopedManifest))
	require.NoError(t, err)

	exclude, include := m.ExternalSets(nil, nil)

	assert.Equal(t, []string{"a", "b"}, exclude.Packages())
	assert.Equal(t, []string{"b"}, include.Packages())

	for _, builtin := range builtinModules {
		assert.True(t, exclude.Contains(builtin), builtin)
		assert.True(t, include.Contains(builtin), builtin)
	}
	assert.Equal(t, []string{BuiltinPrefix}, exclude.Prefixes)
	assert.Equal(t, []string{BuiltinPrefix}, include.Prefixes)
}

func TestExternalSets_IncludeIsSubset(t *testing.T) {
	manifests := []*Manifest{
		{},
		{Dependencies: map[string]string{"a": "1"}},
		{PeerDependencies: map[string]string{"react": "^18"}},
		{
			Dependencies:         map[string]string{"a": "1", "shared": "1"},
			OptionalDependencies: map[string]string{"fsevents": "2"},
			PeerDependencies:     map[string]string{"shared": "1", "vue": "3"},
			DevDependencies:      map[string]string{"vitest": "1"},
		},
	}
	extras := [][]string{nil, {"cesium/Build/Cesium/Widgets/widgets.css"}}
	includes := [][]string{nil, {"vue"}, {"a", "shared"}}

	for i, m := range manifests {
		for j, extra := range extras {
			for k, inc := range includes {
				t.Run(fmt.Sprintf("m%d_e%d_i%d", i, j, k), func(t *testing.T) {
					exclude, include := m.ExternalSets(extra, inc)
					assert.True(t, include.SubsetOf(exclude))
					for _, name := range inc {
						assert.NotContains(t, exclude.Names, name)
						assert.NotContains(t, include.Names, name)
					}
				})
			}
		}
	}
}

func TestDependencyNames(t *testing.T) {
	m := &Manifest{
		Dependencies:     map[string]string{"zod": "3", "axios": "1"},
		PeerDependencies: map[string]string{"axios": "1", "react": "18"},
		DevDependencies:  map[string]string{"typescript": "5"},
	}

	t.Run("orders by category then name without duplicates", func(t *testing.T) {
		set := m.DependencyNames(Dependencies, PeerDependencies)
		assert.Equal(t, []string{"axios", "zod", "react"}, set.Packages())
	})

	t.Run("missing category contributes nothing", func(t *testing.T) {
		set := m.DependencyNames(OptionalDependencies)
		assert.Empty(t, set.Packages())
		assert.Equal(t, len(builtinModules), set.Len())
	})

	t.Run("dev dependencies are opt-in", func(t *testing.T) {
		assert.False(t, m.DependencyNames(ExcludeCategories...).Contains("typescript"))
		assert.True(t, m.DependencyNames(DevDependencies).Contains("typescript"))
	})
}

func TestDependencySet_Contains(t *testing.T) {
	set := NewDependencySet([]string{"lodash", "@turf/turf"}, BuiltinPrefix)

	tests := []struct {
		module   string
		expected bool
	}{
		{"lodash", true},
		{"lodash/get", true},
		{"lodash-es", false},
		{"@turf/turf", true},
		{"@turf/helpers", false},
		{"node:fs", true},
		{"node:fs/promises", true},
		{"./local", false},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.expected, set.Contains(tt.module))
		})
	}
}

func TestDependencySet_DerivationsDoNotAlias(t *testing.T) {
	base := NewDependencySet([]string{"a", "b"}, BuiltinPrefix)

	with := base.With("c")
	without := base.Without("a")
	with.Names[0] = "mutated"
	without.Prefixes[0] = "mutated:"

	assert.Equal(t, []string{"a", "b"}, base.Names)
	assert.Equal(t, []string{BuiltinPrefix}, base.Prefixes)
	assert.Equal(t, []string{"b"}, without.Names)
}

func TestNewDependencySet_Dedupes(t *testing.T) {
	set := NewDependencySet([]string{"a", "", "b", "a"}, "node:", "node:")
	assert.Equal(t, []string{"a", "b"}, set.Names)
	assert.Equal(t, []string{"node:"}, set.Prefixes)
}
