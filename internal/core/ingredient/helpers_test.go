package ingredient

import (
	"strings"
	"testing"

	"knowlabel/internal/core/ai/provider/providertest"
	"knowlabel/internal/core/ai/service"

	"github.com/stretchr/testify/require"
)

const sampleCSV = `ingredient,beneficial,description,alternatives
Water,true,Universal solvent used as the base of most formulas.,
Glycerin,true,A humectant that draws moisture into the skin.,Aloe Vera; Honey
Parabens,false,Preservatives with endocrine concerns.,Rosemary Extract; Vitamin E
Sodium Lauryl Sulfate,false,A harsh surfactant that can irritate skin.,Coco Glucoside
Sodium Chloride,true,Table salt used as a thickener.,
Aloe Vera,true,Soothing plant gel.,
`

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := ParseTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return table
}

func newGenerator(t *testing.T, fake *providertest.Fake) *service.Service {
	t.Helper()
	svc, err := service.NewService(fake, nil)
	require.NoError(t, err)
	return svc
}

const okReply = `{"description": "A lab-made test compound.", "alternatives": ["Jojoba Oil", "Shea Butter"]}`
