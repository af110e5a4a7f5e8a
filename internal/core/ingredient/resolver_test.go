package ingredient

import (
	"testing"

	"knowlabel/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Lookup(t *testing.T) {
	resolver := NewResolver(sampleTable(t))

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"glycerin", "glycerin", true},
		{"aqua (water)", "water", true},
		{"water (aqua)", "water", true},
		{"aqua/water/eau", "water", true},
		{"sodium chloride", "sodium chloride", true},
		{"sodium", "", false},
		{"fakechemxyz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rec, ok := resolver.Lookup(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, rec.CanonicalName)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver(sampleTable(t))

	res, ok := resolver.Resolve(Segment{Input: "Water", Key: "water"})
	require.True(t, ok)

	assert.Equal(t, "Water", res.InputText)
	assert.Equal(t, common.SourceDatabase, res.Source)
	assert.Equal(t, common.ClassificationBeneficial, res.Classification)
	assert.NotNil(t, res.Alternatives)
	assert.Empty(t, res.Alternatives)
	require.NotNil(t, res.MatchedRecord)
	assert.Equal(t, "water", res.MatchedRecord.CanonicalName)

	_, ok = resolver.Resolve(Segment{Input: "Unobtainium", Key: "unobtainium"})
	assert.False(t, ok)
}
