package save

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	tests := []struct {
		name    string
		in      TurnState
		wantErr error
		check   func(t *testing.T, rec TurnState)
	}{
		{
			name: "v1 gets turn defaults",
			in:   TurnState{Version: 1, State: StateAITurn, PlayerActionTaken: true, PlayerID: 1, GlobalTurn: 7},
			check: func(t *testing.T, rec TurnState) {
				assert.Equal(t, CurrentVersion, rec.Version)
				assert.Equal(t, StatePlayerTurn, rec.State)
				assert.False(t, rec.PlayerActionTaken)
				assert.Equal(t, uint32(7), rec.GlobalTurn)
				require.Len(t, rec.Energies, 1)
				assert.Equal(t, DefaultPlayerEnergy, rec.Energies[0].Current)
			},
		},
		{
			name: "v0 keeps existing player ledger",
			in: TurnState{Version: 0, PlayerID: 1, Energies: []EnergyRecord{
				{Actor: 1, Current: 40, Max: 100, RegenerationRate: 2},
			}},
			check: func(t *testing.T, rec TurnState) {
				require.Len(t, rec.Energies, 1)
				assert.Equal(t, uint32(40), rec.Energies[0].Current)
			},
		},
		{
			name: "current version untouched",
			in:   TurnState{Version: CurrentVersion, State: StateAITurn, PlayerActionTaken: true},
			check: func(t *testing.T, rec TurnState) {
				assert.Equal(t, StateAITurn, rec.State)
				assert.True(t, rec.PlayerActionTaken)
			},
		},
		{
			name:    "future version rejected",
			in:      TurnState{Version: CurrentVersion + 1},
			wantErr: ErrUnsupportedVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.in
			err := Migrate(&rec)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}
