package tx

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialRunner_SerializesUnits(t *testing.T) {
	r := NewSerial()
	counter := 0

	// Read-yield-write would lose increments if two units overlapped.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.RunInTx(context.Background(), func(ctx context.Context) error {
				v := counter
				runtime.Gosched()
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, counter)
}

func TestSerialRunner_NestedCallJoinsOuterUnit(t *testing.T) {
	r := NewSerial()
	entered := false

	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		return r.RunInTx(ctx, func(context.Context) error {
			entered = true
			return nil
		})
	})

	require.NoError(t, err)
	assert.True(t, entered)
}
