package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowlabel/internal/core/ai/cache"
	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/core/ai/provider/providertest"
	"knowlabel/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) cache.Store {
	t.Helper()
	store := cache.NewManager(&config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestProcessRequest_CachesSuccessfulReplies(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static("answer")}
	svc, err := NewService(fake, newMemoryStore(t))
	require.NoError(t, err)

	first, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "what is  glycerin?"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "what is glycerin?\n"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "answer", second.Content)

	assert.Equal(t, []string{"what is glycerin?"}, fake.Calls())
}

func TestProcessRequest_DoesNotCacheFailures(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Failing(errors.New("connection refused"))}
	svc, err := NewService(fake, newMemoryStore(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "x"})
		assert.Error(t, err)
	}
	assert.Len(t, fake.Calls(), 2)
}

func TestProcessRequest_SkipsCacheWhenValidationFails(t *testing.T) {
	replies := []string{`{"foo": "bar"}`, "good"}
	var n int
	fake := &providertest.Fake{Reply: func(context.Context, *provider.Request) (string, error) {
		reply := replies[n]
		n++
		return reply, nil
	}}
	svc, err := NewService(fake, newMemoryStore(t))
	require.NoError(t, err)

	validate := func(content string) error {
		if content != "good" {
			return errors.New("unusable reply")
		}
		return nil
	}

	first, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "x", Validate: validate})
	require.NoError(t, err)
	assert.Equal(t, `{"foo": "bar"}`, first.Content)

	second, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "x", Validate: validate})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, "good", second.Content)

	third, err := svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "x", Validate: validate})
	require.NoError(t, err)
	assert.True(t, third.CacheHit)
	assert.Len(t, fake.Calls(), 2)
}

func TestProcessRequest_AppliesProviderTimeout(t *testing.T) {
	fake := &providertest.Fake{Timeout: 20 * time.Millisecond, Reply: providertest.Blocking()}
	svc, err := NewService(fake, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.ProcessRequest(context.Background(), &provider.Request{Prompt: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProcessRequest_RejectsEmptyPrompt(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static("unused")}
	svc, err := NewService(fake, nil)
	require.NoError(t, err)

	_, err = svc.ProcessRequest(context.Background(), &provider.Request{Prompt: " \n\t"})
	assert.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}

func TestClose_ClosesProvider(t *testing.T) {
	fake := &providertest.Fake{Reply: providertest.Static("x")}
	svc, err := NewService(fake, newMemoryStore(t))
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	assert.True(t, fake.Closed())
}
