package save

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

const fileSuffix = ".sav"

// fileHeader precedes the record in every save file.
type fileHeader struct {
	Version int
	SavedAt time.Time
}

// FileStore keeps one gzip-compressed gob file per slot.
type FileStore struct {
	dir      string
	maxSlots int
	logger   *zap.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, maxSlots int, logger *zap.Logger) *FileStore {
	if maxSlots < 1 {
		maxSlots = DefaultMaxSlots
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, maxSlots: maxSlots, logger: logger}
}

func (s *FileStore) path(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot_%02d%s", slot, fileSuffix))
}

// Save writes rec to slot, replacing any previous save atomically.
func (s *FileStore) Save(ctx context.Context, slot int, rec TurnState) error {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	rec.Version = CurrentVersion
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}

	tmp, err := os.CreateTemp(s.dir, "slot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeRecord(tmp, rec); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(slot)); err != nil {
		return fmt.Errorf("failed to move save into place: %w", err)
	}

	s.logger.Info("saved turn state",
		zap.Int("slot", slot),
		zap.Uint32("global_turn", rec.GlobalTurn),
		zap.String("directory", s.dir))
	return nil
}

func writeRecord(file *os.File, rec TurnState) error {
	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)
	if err := encoder.Encode(&fileHeader{Version: rec.Version, SavedAt: rec.SavedAt}); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if err := encoder.Encode(&rec); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip stream: %w", err)
	}
	return nil
}

// Load reads slot and migrates the record.
func (s *FileStore) Load(ctx context.Context, slot int) (TurnState, error) {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return TurnState{}, err
	}
	if err := ctx.Err(); err != nil {
		return TurnState{}, err
	}

	file, err := os.Open(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return TurnState{}, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}
	if err != nil {
		return TurnState{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return TurnState{}, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)
	var header fileHeader
	if err := decoder.Decode(&header); err != nil {
		return TurnState{}, fmt.Errorf("failed to decode header: %w", err)
	}
	if header.Version > CurrentVersion {
		return TurnState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}

	var rec TurnState
	if err := decoder.Decode(&rec); err != nil {
		return TurnState{}, fmt.Errorf("failed to decode record: %w", err)
	}
	rec.Version = header.Version
	if err := Migrate(&rec); err != nil {
		return TurnState{}, err
	}

	s.logger.Info("loaded turn state",
		zap.Int("slot", slot),
		zap.Int("file_version", header.Version),
		zap.Uint32("global_turn", rec.GlobalTurn))
	return rec, nil
}

// Delete removes slot. Deleting an empty slot is not an error.
func (s *FileStore) Delete(ctx context.Context, slot int) error {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete slot %d: %w", slot, err)
	}
	return nil
}

// List returns the occupied slots in slot order.
func (s *FileStore) List(ctx context.Context) ([]SlotInfo, error) {
	var out []SlotInfo
	for slot := 0; slot < s.maxSlots; slot++ {
		if _, err := os.Stat(s.path(slot)); err != nil {
			continue
		}
		rec, err := s.Load(ctx, slot)
		if err != nil {
			s.logger.Warn("skipping unreadable save", zap.Int("slot", slot), zap.Error(err))
			continue
		}
		out = append(out, SlotInfo{Slot: slot, GlobalTurn: rec.GlobalTurn, SavedAt: rec.SavedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}
