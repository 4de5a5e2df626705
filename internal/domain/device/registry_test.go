package device_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/infrastructure/database/memory"
)

func attributes(n int) map[string]string {
	raw := make(map[string]string, n)
	for i := 0; i < n; i++ {
		raw[fmt.Sprintf("attr_%02d", i)] = fmt.Sprintf("value-%d", i)
	}
	return raw
}

func TestHash_IgnoresOrderAndCase(t *testing.T) {
	a := map[string]string{"UserAgent": "Mozilla/5.0", "timezone": "UTC", "screen": "1920x1080"}
	b := map[string]string{" screen ": "1920x1080", "useragent": "Mozilla/5.0", "TIMEZONE": " UTC"}

	assert.Equal(t, device.Hash(a), device.Hash(b))
	assert.Len(t, device.Hash(a), 64)

	t.Run("keys colliding after normalization", func(t *testing.T) {
		raw := map[string]string{"User_Agent": "Mozilla/5.0", "user_agent": "HeadlessChrome/120.0", "screen": "800x600"}
		want := device.Hash(raw)
		for i := 0; i < 200; i++ {
			require.Equal(t, want, device.Hash(raw))
		}

		swapped := map[string]string{"user_agent": "Mozilla/5.0", "USER_AGENT": "HeadlessChrome/120.0", "screen": "800x600"}
		assert.Equal(t, want, device.Hash(swapped))
		assert.NotEqual(t, want, device.Hash(map[string]string{"user_agent": "Mozilla/5.0", "screen": "800x600"}))
	})
}

func TestHash_DiffersOnValue(t *testing.T) {
	a := map[string]string{"timezone": "UTC"}
	b := map[string]string{"timezone": "Europe/Berlin"}

	assert.NotEqual(t, device.Hash(a), device.Hash(b))
}

func TestComplete(t *testing.T) {
	assert.False(t, device.Complete(attributes(device.MinAttributes-1)))
	assert.True(t, device.Complete(attributes(device.MinAttributes)))

	dup := attributes(device.MinAttributes - 1)
	dup["ATTR_00"] = "shadow"
	assert.False(t, device.Complete(dup))
}

func TestRegistry_FirstSightingIsUnknown(t *testing.T) {
	reg := device.NewRegistry(memory.NewDeviceRepository())
	ctx := context.Background()
	userID := uuid.New()

	first, err := reg.Resolve(ctx, userID, attributes(20))
	require.NoError(t, err)
	assert.False(t, first.Known)
	assert.True(t, first.Complete)

	second, err := reg.Resolve(ctx, userID, attributes(20))
	require.NoError(t, err)
	assert.True(t, second.Known)
	assert.Equal(t, first.FingerprintID, second.FingerprintID)
}

func TestRegistry_DevicesArePerUser(t *testing.T) {
	reg := device.NewRegistry(memory.NewDeviceRepository())
	ctx := context.Background()

	_, err := reg.Resolve(ctx, uuid.New(), attributes(20))
	require.NoError(t, err)

	other, err := reg.Resolve(ctx, uuid.New(), attributes(20))
	require.NoError(t, err)
	assert.False(t, other.Known)
}

func TestRegistry_NoAttributes(t *testing.T) {
	reg := device.NewRegistry(memory.NewDeviceRepository())

	_, err := reg.Resolve(context.Background(), uuid.New(), nil)

	assert.ErrorIs(t, err, device.ErrNoAttributes)
}

func TestRegistry_MarkTrusted(t *testing.T) {
	reg := device.NewRegistry(memory.NewDeviceRepository())
	ctx := context.Background()
	userID := uuid.New()

	res, err := reg.Resolve(ctx, userID, attributes(3))
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.False(t, res.Trusted)

	require.NoError(t, reg.MarkTrusted(ctx, userID, res.Hash))

	again, err := reg.Resolve(ctx, userID, attributes(3))
	require.NoError(t, err)
	assert.True(t, again.Trusted)
}

func TestRegistry_ConcurrentFirstSighting(t *testing.T) {
	reg := device.NewRegistry(memory.NewDeviceRepository())
	ctx := context.Background()
	userID := uuid.New()

	const workers = 16
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := reg.Resolve(ctx, userID, attributes(20))
			assert.NoError(t, err)
			if res != nil {
				ids[i] = res.FingerprintID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	devices, err := reg.Devices(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}
