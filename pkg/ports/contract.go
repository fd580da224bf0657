package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stemma/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPayloadStoreContract runs a suite of tests to verify that a
// PayloadStore implementation adheres to the defined interface contract.
//
// Payloads go through the adapter's own codec, so the suite only asserts on
// values that survive generic JSON decoding (strings and float64 numbers).
func RunPayloadStoreContract(t *testing.T, store PayloadStore) {
	ctx := context.Background()
	nodeID := "contract-test-node-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		payload := map[string]any{
			"metric": "loss",
			"value":  float64(42),
		}

		err := store.Save(ctx, nodeID, payload)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, nodeID)
		require.NoError(t, err, "Load should not return error")

		m, ok := loaded.(map[string]any)
		require.True(t, ok, "expected a map payload, got %T", loaded)
		assert.Equal(t, "loss", m["metric"])
		assert.EqualValues(t, 42, m["value"])
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, nodeID, map[string]any{"v": "old"}))
		require.NoError(t, store.Save(ctx, nodeID, map[string]any{"v": "new"}))

		loaded, err := store.Load(ctx, nodeID)
		require.NoError(t, err)
		m, ok := loaded.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "new", m["v"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+nodeID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, nodeID, map[string]any{"v": "x"}))

		err := store.Delete(ctx, nodeID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, nodeID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "Load after Delete should return ErrNotFound")

		// Deleting again is not an error.
		assert.NoError(t, store.Delete(ctx, nodeID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := nodeID + "-1"
		id2 := nodeID + "-2"
		require.NoError(t, store.Save(ctx, id1, map[string]any{"n": float64(1)}))
		require.NoError(t, store.Save(ctx, id2, map[string]any{"n": float64(2)}))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
