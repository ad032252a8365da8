package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	errs "useretl/pkg/errors"
	"useretl/pkg/logger"
)

// None is returned by Read when no checkpoint has been written yet
const None = -1

// Manager reads and writes the index of the last successfully processed row
type Manager struct {
	path   string
	logger logger.Logger
}

// Info describes the stored checkpoint for display
type Info struct {
	Path      string
	Index     int
	UpdatedAt time.Time
}

// NewManager creates a checkpoint manager backed by the file at path
func NewManager(path string) *Manager {
	return &Manager{
		path:   path,
		logger: logger.GetLogger().WithField("component", "checkpoint"),
	}
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.path
}

// Read returns the stored index, or None when the file does not exist.
// Content that is not a base-10 integer is reported as a checkpoint error.
func (m *Manager) Read() (int, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return None, nil
		}
		return None, errs.Checkpoint("read", err)
	}

	index, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return None, errs.Checkpoint("read", fmt.Errorf("corrupt checkpoint %s: %w", m.path, err))
	}

	m.logger.DebugWithFields("checkpoint loaded", map[string]interface{}{
		"path":  m.path,
		"index": index,
	})
	return index, nil
}

// Write replaces the stored index atomically
func (m *Manager) Write(index int) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.Checkpoint("write", fmt.Errorf("failed to create checkpoint directory: %w", err))
		}
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Checkpoint("write", fmt.Errorf("failed to create temporary checkpoint file: %w", err))
	}

	if _, err := file.WriteString(strconv.Itoa(index)); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Checkpoint("write", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Checkpoint("write", fmt.Errorf("failed to sync checkpoint file: %w", err))
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Checkpoint("write", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return errs.Checkpoint("write", fmt.Errorf("failed to replace checkpoint file: %w", err))
	}

	m.logger.DebugWithFields("checkpoint saved", map[string]interface{}{"index": index})
	return nil
}

// Reset removes the checkpoint so the next run starts from index 0
func (m *Manager) Reset() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return errs.Checkpoint("reset", err)
	}
	m.logger.InfoWithFields("checkpoint reset", map[string]interface{}{"path": m.path})
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Info returns the stored index and modification time, or nil if none is stored
func (m *Manager) Info() (*Info, error) {
	stat, err := os.Stat(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Checkpoint("stat", err)
	}

	index, err := m.Read()
	if err != nil {
		return nil, err
	}

	return &Info{Path: m.path, Index: index, UpdatedAt: stat.ModTime()}, nil
}

// Backup copies the current checkpoint next to itself with a .backup suffix
func (m *Manager) Backup() (string, error) {
	if !m.Exists() {
		return "", nil
	}

	backupPath := m.path + ".backup"

	src, err := os.Open(m.path)
	if err != nil {
		return "", errs.Checkpoint("backup", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", errs.Checkpoint("backup", err)
	}

	if err := copyAndClose(dst, src); err != nil {
		_ = os.Remove(backupPath)
		return "", errs.Checkpoint("backup", err)
	}

	return backupPath, nil
}

// copyAndClose copies src into dst and closes dst. A failed Close means the
// copy may not be on disk, so its error is returned.
func copyAndClose(dst io.WriteCloser, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
