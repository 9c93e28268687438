package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
)

// CheckpointManager snapshots the record store into a directory of CSV files
// so the ledger can be rolled back regardless of the active backend.
type CheckpointManager struct {
	store          RecordStore
	now            func() time.Time
	checkpointsDir string
}

// CheckpointMetadata contains metadata about a checkpoint.
type CheckpointMetadata struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	FileSize    int64     `json:"file_size"`
	RecordCount int       `json:"record_count"`
	IsAuto      bool      `json:"is_auto"`
}

// CheckpointInfo represents information about a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt   time.Time
	ID          string
	Description string
	FileSize    int64
	Records     int
	IsAuto      bool
}

// Common errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpoint   = errors.New("invalid checkpoint tag: cannot contain path separators")
)

const maxAutoCheckpoints = 5

// NewCheckpointManager creates a checkpoint manager storing snapshots in dir.
func NewCheckpointManager(store RecordStore, dir string) (*CheckpointManager, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{
		store:          store,
		checkpointsDir: dir,
		now:            time.Now,
	}, nil
}

// Create snapshots the current records under tag. An empty tag is replaced by
// a timestamped one.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, tag, description, false)
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("checkpoint-%s", cm.now().Format("2006-01-02-150405"))
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}

	snapshotPath := cm.snapshotPath(tag)
	if _, err := os.Stat(snapshotPath); err == nil {
		return nil, ErrCheckpointExists
	}

	records, err := cm.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	if err := WriteFileAtomic(snapshotPath, 0600, func(w io.Writer) error {
		return writeRecords(w, records)
	}); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	stat, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:          tag,
		CreatedAt:   cm.now(),
		Description: description,
		FileSize:    stat.Size(),
		RecordCount: len(records),
		IsAuto:      auto,
	}

	if err := cm.saveMetadata(cm.metadataPath(tag), metadata); err != nil {
		if rmErr := os.Remove(snapshotPath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	info := metadata.info()
	return &info, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}

		metadata, err := cm.loadMetadata(filepath.Join(cm.checkpointsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		checkpoints = append(checkpoints, metadata.info())
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})

	return checkpoints, nil
}

// Restore replaces the store contents with the snapshot taken under tag.
// If writing the snapshot fails the previous records are written back.
func (cm *CheckpointManager) Restore(ctx context.Context, tag string) error {
	if err := validateTag(tag); err != nil {
		return err
	}

	snapshot, err := cm.readSnapshot(tag)
	if err != nil {
		return err
	}

	metadata, err := cm.loadMetadata(cm.metadataPath(tag))
	if err != nil {
		return fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	if metadata.RecordCount != len(snapshot) {
		return fmt.Errorf("%w: expected %d records, found %d",
			ErrCheckpointCorrupted, metadata.RecordCount, len(snapshot))
	}

	current, err := cm.store.Load(ctx)
	if err != nil {
		slog.Warn("current records unreadable, restoring without backup", "error", err)
		current = nil
	}

	if err := cm.store.SaveAll(ctx, snapshot); err != nil {
		if current != nil {
			if restoreErr := cm.store.SaveAll(ctx, current); restoreErr != nil {
				slog.Error("failed to put back records after checkpoint restore failure", "error", restoreErr)
			}
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}

	return nil
}

// Delete removes a checkpoint.
func (cm *CheckpointManager) Delete(_ context.Context, tag string) error {
	if err := validateTag(tag); err != nil {
		return err
	}

	snapshotPath := cm.snapshotPath(tag)
	if _, err := os.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	if err := os.Remove(snapshotPath); err != nil {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}

	metadataPath := cm.metadataPath(tag)
	if err := os.Remove(metadataPath); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "path", metadataPath)
	}

	return nil
}

// AutoCheckpoint creates an automatic checkpoint before a bulk operation and
// prunes old automatic checkpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) (*CheckpointInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", prefix, cm.now().Format("2006-01-02-150405"))
	description := fmt.Sprintf("Automatic checkpoint before %s", prefix)

	info, err := cm.create(ctx, tag, description, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.cleanupOldAutoCheckpoints(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}

	return info, nil
}

func (cm *CheckpointManager) cleanupOldAutoCheckpoints(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoCheckpoints {
			if err := cm.Delete(ctx, cp.ID); err != nil {
				slog.Debug("failed to delete old auto-checkpoint during cleanup", "error", err, "checkpoint", cp.ID)
			}
		}
	}

	return nil
}

func (cm *CheckpointManager) readSnapshot(tag string) ([]model.Record, error) {
	f, err := os.Open(cm.snapshotPath(tag))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to access checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := readRecords(f, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointCorrupted, err)
	}
	return records, nil
}

func (cm *CheckpointManager) snapshotPath(tag string) string {
	return filepath.Join(cm.checkpointsDir, tag+".csv")
}

func (cm *CheckpointManager) metadataPath(tag string) string {
	return filepath.Join(cm.checkpointsDir, tag+".meta.json")
}

func (cm *CheckpointManager) saveMetadata(path string, metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, 0600, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	})
}

func (cm *CheckpointManager) loadMetadata(path string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from a validated tag
	if err != nil {
		return nil, err
	}

	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func (m CheckpointMetadata) info() CheckpointInfo {
	return CheckpointInfo{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		Description: m.Description,
		FileSize:    m.FileSize,
		Records:     m.RecordCount,
		IsAuto:      m.IsAuto,
	}
}

func validateTag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("%w: checkpoint tag", ErrEmptyString)
	}
	if strings.Contains(tag, "/") || strings.Contains(tag, "\\") || strings.Contains(tag, "..") {
		return ErrInvalidCheckpoint
	}
	return nil
}
