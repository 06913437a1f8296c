package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	ctx := context.Background()

	require.NoError(t, c.AcquireMemory(ctx, 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(ctx, 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(tctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(ctx, 20))
	assert.Equal(t, int64(60), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(ctx, 101), ErrMemoryLimitExceeded)
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Batches(t *testing.T) {
	c := NewController(Config{MaxInflightBatches: 2})

	require.NoError(t, c.AcquireBatch(context.Background()))
	require.NoError(t, c.AcquireBatch(context.Background()))
	assert.False(t, c.TryAcquireBatch())

	c.ReleaseBatch()
	assert.True(t, c.TryAcquireBatch())
}

func TestController_DefaultsToOneBatch(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxInflightBatches)
	assert.True(t, c.TryAcquireBatch())
	assert.False(t, c.TryAcquireBatch())
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	assert.NoError(t, c.AcquireMemory(ctx, 1<<40))
	assert.True(t, c.TryAcquireMemory(1))
	c.ReleaseMemory(1)
	assert.Zero(t, c.MemoryUsage())
	assert.NoError(t, c.AcquireBatch(ctx))
	assert.True(t, c.TryAcquireBatch())
	c.ReleaseBatch()
	assert.NoError(t, c.AcquireIO(ctx, 1<<30))
	assert.Equal(t, Config{}, c.Config())
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	// The bucket starts full, so one burst passes without waiting.
	start := time.Now()
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
	assert.Less(t, time.Since(start), time.Second)
}

func TestController_IOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 100))
}

func TestLimitedReaderWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var buf bytes.Buffer
	w := NewLimitedWriter(ctx, &buf, c)
	_, err := io.Copy(w, strings.NewReader("payload"))
	require.NoError(t, err)

	got, err := io.ReadAll(NewLimitedReader(ctx, &buf, c))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}
