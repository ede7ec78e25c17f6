package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveScope(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"@scope/my-lib", "my-lib"},
		{"my-lib", "my-lib"},
		{"@scope", "@scope"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, RemoveScope(tt.input))
		})
	}
}

func TestLibraryName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"@scope/my-lib", "MyLib"},
		{"gis-tools", "GisTools"},
		{"d3.geo", "D3Geo"},
		{"lodash_es", "LodashEs"},
		{"already", "Already"},
		{"3d-tiles", "_3dTiles"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, LibraryName(tt.input))
		})
	}
}
