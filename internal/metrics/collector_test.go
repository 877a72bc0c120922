package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpEmbedding, 10*time.Millisecond)
	c.RecordTiming(OpEmbedding, 30*time.Millisecond)

	snap := c.Snapshot()
	op := snap.Ops[OpEmbedding]
	require.NotNil(t, op)
	assert.Equal(t, int64(2), op.Count)
	assert.Equal(t, int64(40), op.TotalTimeMs)
	assert.Equal(t, 20.0, op.AvgTimeMs)
	assert.Equal(t, int64(10), op.MinTimeMs)
	assert.Equal(t, int64(30), op.MaxTimeMs)
	assert.Nil(t, op.TotalInputTokens)

	_, ok := snap.Ops[OpTTS]
	assert.False(t, ok, "unrecorded ops are omitted")
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, time.Second, 100, 20)
	c.RecordLLMUsage(OpLLMGenerate, time.Second, 300, 40)

	op := c.Snapshot().Ops[OpLLMGenerate]
	require.NotNil(t, op)
	require.NotNil(t, op.TotalInputTokens)
	assert.Equal(t, int64(400), *op.TotalInputTokens)
	assert.Equal(t, int64(60), *op.TotalOutputTokens)
	assert.Equal(t, int64(100), *op.MinInputTokens)
	assert.Equal(t, int64(40), *op.MaxOutputTokens)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordTiming(OpMix, time.Second)
	c.RecordLLMUsage(OpLLMGenerate, time.Second, 1, 1)
	c.Since(OpPublish, time.Now())
	assert.Empty(t, c.Snapshot().Ops)
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpSourceFetch, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().Ops[OpSourceFetch].Count)
}
