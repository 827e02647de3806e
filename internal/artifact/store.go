package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var nameRe = regexp.MustCompile(`^[a-z0-9]+_liquidation_heatmap_\d{8}_\d{6}(-\d+)?_[a-z0-9_]+\.png$`)

// ErrExists is returned by Save when the artifact name is already taken.
var ErrExists = errors.New("artifact already exists")

// Meta describes a stored heatmap image. It is written next to the image as
// a JSON sidecar with the same base name.
type Meta struct {
	Name       string    `json:"name"`
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	SizeBytes  int       `json:"size_bytes"`
	CapturedAt time.Time `json:"captured_at"`
	Price      string    `json:"price,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
}

// Store manages heatmap files in a single output directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// ValidName reports whether name follows the heatmap naming scheme.
func ValidName(name string) bool { return nameRe.MatchString(name) }

func (s *Store) validateName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid artifact name: %q", name)
	}
	return nil
}

func sidecar(name string) string { return strings.TrimSuffix(name, ".png") + ".json" }

// Path returns the on-disk location for name.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Save creates the image exclusively and writes the metadata sidecar. It
// returns the image path.
func (s *Store) Save(meta Meta, imageData []byte) (string, error) {
	if err := s.validateName(meta.Name); err != nil {
		return "", err
	}
	meta.SizeBytes = len(imageData)

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := filepath.Join(s.dir, meta.Name)
	f, err := os.OpenFile(imgPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, meta.Name)
		}
		return "", fmt.Errorf("artifact store: create image: %w", err)
	}
	if _, err := f.Write(imageData); err != nil {
		_ = f.Close()
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: close image: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, sidecar(meta.Name)), data, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: write meta: %w", err)
	}
	return imgPath, nil
}

// Get reads metadata by artifact name.
func (s *Store) Get(name string) (Meta, error) {
	if err := s.validateName(name); err != nil {
		return Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, sidecar(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("artifact not found: %s", name)
		}
		return Meta{}, fmt.Errorf("artifact store: read meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("artifact store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns stored artifacts, newest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("artifact store: glob: %w", err)
	}
	metas := make([]Meta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CapturedAt.After(metas[j].CapturedAt)
	})
	return metas, nil
}

// ReadImage returns the image bytes for name.
func (s *Store) ReadImage(name string) ([]byte, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact image not found: %s", name)
		}
		return nil, fmt.Errorf("artifact store: read image: %w", err)
	}
	return data, nil
}

// Take reads the image at path and removes it with its sidecar. Front ends
// that only forward the bytes use it so nothing is left on disk.
func (s *Store) Take(path string) ([]byte, error) {
	name := filepath.Base(path)
	data, err := s.ReadImage(name)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(name); err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes both the image and metadata files.
func (s *Store) Delete(name string) error {
	if err := s.validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		slog.Debug("artifact image cleanup failed", "name", name, "error", err)
	}
	if err := os.Remove(filepath.Join(s.dir, sidecar(name))); err != nil && !os.IsNotExist(err) {
		slog.Debug("artifact meta cleanup failed", "name", name, "error", err)
	}
	return nil
}

// Prune deletes artifacts captured before cutoff and returns how many went.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range metas {
		if m.CapturedAt.Before(cutoff) {
			if err := s.Delete(m.Name); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
