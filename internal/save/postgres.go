package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Pool is the subset of *pgxpool.Pool the Postgres store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the table used by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS turn_saves (
	slot        INTEGER PRIMARY KEY,
	version     INTEGER NOT NULL,
	global_turn BIGINT NOT NULL,
	payload     JSONB NOT NULL,
	saved_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps one JSON row per slot.
type PostgresStore struct {
	pool     Pool
	maxSlots int
	logger   *zap.Logger
}

// NewPostgresStore creates a store on pool.
func NewPostgresStore(pool Pool, maxSlots int, logger *zap.Logger) *PostgresStore {
	if maxSlots < 1 {
		maxSlots = DefaultMaxSlots
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, maxSlots: maxSlots, logger: logger}
}

// EnsureSchema creates the saves table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save upserts rec into slot.
func (s *PostgresStore) Save(ctx context.Context, slot int, rec TurnState) error {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return err
	}
	rec.Version = CurrentVersion
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO turn_saves (slot, version, global_turn, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slot) DO UPDATE SET
			version = EXCLUDED.version,
			global_turn = EXCLUDED.global_turn,
			payload = EXCLUDED.payload,
			saved_at = EXCLUDED.saved_at`,
		slot, rec.Version, int64(rec.GlobalTurn), payload, rec.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save slot %d: %w", slot, err)
	}
	s.logger.Debug("saved turn state", zap.Int("slot", slot), zap.Uint32("global_turn", rec.GlobalTurn))
	return nil
}

// Load reads slot and migrates the record.
func (s *PostgresStore) Load(ctx context.Context, slot int) (TurnState, error) {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return TurnState{}, err
	}
	var (
		version int
		payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT version, payload FROM turn_saves WHERE slot = $1`, slot).Scan(&version, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return TurnState{}, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}
	if err != nil {
		return TurnState{}, fmt.Errorf("failed to load slot %d: %w", slot, err)
	}
	if version > CurrentVersion {
		return TurnState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var rec TurnState
	if err := json.Unmarshal(payload, &rec); err != nil {
		return TurnState{}, fmt.Errorf("failed to decode slot %d: %w", slot, err)
	}
	rec.Version = version
	if err := Migrate(&rec); err != nil {
		return TurnState{}, err
	}
	return rec, nil
}

// Delete removes slot. Deleting an empty slot is not an error.
func (s *PostgresStore) Delete(ctx context.Context, slot int) error {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM turn_saves WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("failed to delete slot %d: %w", slot, err)
	}
	return nil
}

// List returns the occupied slots in slot order.
func (s *PostgresStore) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slot, global_turn, saved_at FROM turn_saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var (
			info SlotInfo
			turn int64
		)
		if err := rows.Scan(&info.Slot, &turn, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save row: %w", err)
		}
		info.GlobalTurn = uint32(turn)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saves: %w", err)
	}
	return out, nil
}
