package save

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleRecord() TurnState {
	return TurnState{
		State:             StateAITurn,
		PlayerActionTaken: true,
		GlobalTurn:        12,
		SubTurn:           3,
		LastActor:         2,
		HasLastActor:      true,
		PlayerID:          1,
		Energies: []EnergyRecord{
			{Actor: 1, Current: 20, Max: 100, RegenerationRate: 5},
			{Actor: 2, Current: 140, Max: 200, RegenerationRate: 10},
		},
		Checksum: 0xfeed,
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), 3, zaptest.NewLogger(t))

	require.NoError(t, store.Save(ctx, 1, sampleRecord()))

	got, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, StateAITurn, got.State)
	assert.True(t, got.PlayerActionTaken)
	assert.Equal(t, uint32(12), got.GlobalTurn)
	assert.Equal(t, sampleRecord().Energies, got.Energies)
	assert.Equal(t, uint64(0xfeed), got.Checksum)
	assert.False(t, got.SavedAt.IsZero())
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), 3, nil)

	first := sampleRecord()
	require.NoError(t, store.Save(ctx, 0, first))
	second := sampleRecord()
	second.GlobalTurn = 99
	require.NoError(t, store.Save(ctx, 0, second))

	got, err := store.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), got.GlobalTurn)
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), 2, nil)

	_, err := store.Load(ctx, 1)
	assert.True(t, errors.Is(err, ErrSlotNotFound))

	err = store.Save(ctx, 2, sampleRecord())
	assert.True(t, errors.Is(err, ErrInvalidSlot))

	_, err = store.Load(ctx, -1)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func TestFileStore_MigratesOldFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir, 3, nil)

	file, err := os.Create(store.path(2))
	require.NoError(t, err)
	old := TurnState{Version: 1, GlobalTurn: 4, PlayerID: 1}
	gz := gzip.NewWriter(file)
	enc := gob.NewEncoder(gz)
	require.NoError(t, enc.Encode(&fileHeader{Version: 1, SavedAt: time.Now()}))
	require.NoError(t, enc.Encode(&old))
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	got, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, StatePlayerTurn, got.State)
	require.Len(t, got.Energies, 1)
	assert.Equal(t, DefaultPlayerEnergy, got.Energies[0].Current)
}

func TestFileStore_RejectsNewerFile(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), 3, nil)
	require.NoError(t, os.MkdirAll(store.dir, 0o755))

	file, err := os.Create(store.path(0))
	require.NoError(t, err)
	gz := gzip.NewWriter(file)
	require.NoError(t, gob.NewEncoder(gz).Encode(&fileHeader{Version: CurrentVersion + 1}))
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	_, err = store.Load(ctx, 0)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestFileStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), 5, nil)

	for _, slot := range []int{3, 0} {
		rec := sampleRecord()
		rec.GlobalTurn = uint32(slot * 10)
		require.NoError(t, store.Save(ctx, slot, rec))
	}

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 0, infos[0].Slot)
	assert.Equal(t, 3, infos[1].Slot)
	assert.Equal(t, uint32(30), infos[1].GlobalTurn)

	require.NoError(t, store.Delete(ctx, 3))
	require.NoError(t, store.Delete(ctx, 3))
	infos, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
