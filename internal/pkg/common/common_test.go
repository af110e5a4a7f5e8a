package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject("```json\n{\"description\":\"x\"}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"description":"x"}`, got)

	_, ok = ExtractJSONObject("no json here")
	assert.False(t, ok)
}

func TestParseJSON_RejectsTrailingData(t *testing.T) {
	var v map[string]any
	assert.NoError(t, ParseJSON(`{"a":1}`, &v))
	assert.Error(t, ParseJSON(`{"a":1}{"b":2}`, &v))
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"description": "x", "alternatives": []}`, QuoteJSONKeys(`{description: "x", alternatives: []}`))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Aloe", "Jojoba oil"}, SplitList(" Aloe ; ;Jojoba oil;", ";"))
	assert.Empty(t, SplitList("", ";"))
}

func TestParseClassification(t *testing.T) {
	for raw, want := range map[string]Classification{
		"True":       ClassificationBeneficial,
		"beneficial": ClassificationBeneficial,
		" false ":    ClassificationHarmful,
		"Harmful":    ClassificationHarmful,
	} {
		got, err := ParseClassification(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseClassification("maybe")
	assert.Error(t, err)
}

func TestCustomError_WrapKeepsIdentity(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("loading: %w", ErrDatasetUnavailable.Wrap(cause))

	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.ErrorIs(t, err, cause)

	ce := AsCustomError(err)
	assert.Equal(t, http.StatusServiceUnavailable, ce.Status)
	assert.Equal(t, "boom", ce.Response(true).Details)
	assert.Empty(t, ce.Response(false).Details)
}

func TestAsCustomError_DefaultsToInternal(t *testing.T) {
	ce := AsCustomError(errors.New("plain"))
	assert.Equal(t, ErrCodeInternalError, ce.Code)
	assert.Equal(t, http.StatusInternalServerError, ce.Status)
}

func TestFormatRecord(t *testing.T) {
	out := FormatRecord(IngredientRecord{
		CanonicalName:  "hyaluronic acid",
		Classification: ClassificationBeneficial,
		Description:    "Humectant.",
		Alternatives:   []string{"Aloe vera"},
	})
	assert.Contains(t, out, "**Hyaluronic Acid**")
	assert.Contains(t, out, "*beneficial*")
	assert.Contains(t, out, "**Alternatives:** Aloe vera")
}
