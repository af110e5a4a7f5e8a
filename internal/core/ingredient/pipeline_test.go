package ingredient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/core/ai/provider/providertest"
	"knowlabel/internal/core/ai/queue"
	"knowlabel/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, fake *providertest.Fake, workers int) *Pipeline {
	t.Helper()
	q := queue.NewManager(workers, 16)
	t.Cleanup(q.Close)
	return NewPipeline(NewResolver(sampleTable(t)), NewExplainer(newGenerator(t, fake)), q)
}

func TestAnalyze_DatabaseHit(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	results := newPipeline(t, fake, 2).Analyze(context.Background(), "Glycerin")

	require.Len(t, results, 1)
	assert.Equal(t, common.SourceDatabase, results[0].Source)
	assert.Equal(t, common.ClassificationBeneficial, results[0].Classification)
	assert.Equal(t, []string{"Aloe Vera", "Honey"}, results[0].Alternatives)
	assert.Empty(t, fake.Calls())
}

func TestAnalyze_UnknownIngredientIsExplained(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	results := newPipeline(t, fake, 2).Analyze(context.Background(), "FakeChemXYZ")

	require.Len(t, results, 1)
	assert.Equal(t, common.SourceAIGenerated, results[0].Source)
	assert.Equal(t, common.ClassificationUnknown, results[0].Classification)
	assert.Equal(t, "A lab-made test compound.", results[0].Description)
	assert.Nil(t, results[0].MatchedRecord)
	assert.Len(t, fake.Calls(), 1)
}

func TestAnalyze_MixedListKeepsOrder(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	results := newPipeline(t, fake, 2).Analyze(context.Background(), "Water, Glycerin, FakeChemXYZ")

	require.Len(t, results, 3)
	assert.Equal(t, "Water", results[0].InputText)
	assert.Equal(t, common.SourceDatabase, results[0].Source)
	assert.Equal(t, "Glycerin", results[1].InputText)
	assert.Equal(t, common.SourceDatabase, results[1].Source)
	assert.Equal(t, "FakeChemXYZ", results[2].InputText)
	assert.Equal(t, common.SourceAIGenerated, results[2].Source)
	assert.Equal(t, common.ClassificationUnknown, results[2].Classification)
}

func TestAnalyze_ProviderUnavailable(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Failing(errors.New("dial tcp 127.0.0.1:11434: connection refused"))}
	results := newPipeline(t, fake, 2).Analyze(context.Background(), "Parabens, FakeChemXYZ")

	require.Len(t, results, 2)
	assert.Equal(t, common.SourceDatabase, results[0].Source)
	assert.Equal(t, common.ClassificationHarmful, results[0].Classification)

	assert.Equal(t, common.SourceAIGenerated, results[1].Source)
	assert.Equal(t, common.ClassificationUnknown, results[1].Classification)
	assert.Equal(t, string(FailureUnavailable), results[1].Failure)
	assert.Contains(t, results[1].Description, "Explanation unavailable")
}

func TestAnalyze_Idempotent(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	pipeline := newPipeline(t, fake, 2)

	first := pipeline.Analyze(context.Background(), "Water, Parabens, Sodium Lauryl Sulfate")
	second := pipeline.Analyze(context.Background(), "Water, Parabens, Sodium Lauryl Sulfate")

	assert.Equal(t, first, second)
	assert.Empty(t, fake.Calls())
}

func TestAnalyze_OrderPreservedUnderParallelism(t *testing.T) {
	// 越早的片段回應越慢，確保結果順序不受完成順序影響
	delays := map[string]time.Duration{"alpha": 40 * time.Millisecond, "beta": 20 * time.Millisecond, "gamma": 0}
	var inflight, peak int32
	fake := &providertest.Fake{Reply: func(ctx context.Context, req *provider.Request) (string, error) {
		n := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		for name, d := range delays {
			if containsWord(req.Prompt, name) {
				time.Sleep(d)
				return `{"description": "about ` + name + `"}`, nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}

	results := newPipeline(t, fake, 2).Analyze(context.Background(), "alpha, Water, beta\ngamma")

	require.Len(t, results, 4)
	assert.Equal(t, "about alpha", results[0].Description)
	assert.Equal(t, common.SourceDatabase, results[1].Source)
	assert.Equal(t, "about beta", results[2].Description)
	assert.Equal(t, "about gamma", results[3].Description)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestAnalyze_DuplicateUnknownAskedOnce(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	results := newPipeline(t, fake, 4).Analyze(context.Background(), "FakeChemXYZ, fakechemxyz*", "FAKECHEMXYZ")

	require.Len(t, results, 3)
	assert.Len(t, fake.Calls(), 1)
	for _, r := range results {
		assert.Equal(t, "A lab-made test compound.", r.Description)
	}
	assert.Equal(t, "fakechemxyz*", results[1].InputText)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static(okReply)}
	results := newPipeline(t, fake, 1).Analyze(context.Background(), " , \n")

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestAnalyze_CanceledRequest(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Blocking()}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := newPipeline(t, fake, 2).Analyze(ctx, "Water, FakeChemXYZ, OtherThing")

	require.Len(t, results, 3)
	assert.Equal(t, common.SourceDatabase, results[0].Source)
	assert.Equal(t, string(FailureTimeout), results[1].Failure)
	assert.Equal(t, string(FailureTimeout), results[2].Failure)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Source: common.SourceDatabase},
		{Source: common.SourceAIGenerated},
		{Source: common.SourceAIGenerated, Failure: "timeout"},
		{Source: common.SourceDatabase},
	}
	assert.Equal(t, Summary{Database: 2, AIGenerated: 1, Failed: 1}, Summarize(results))
}
