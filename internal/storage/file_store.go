package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sentiment-algo-trader/internal/model"

	"gopkg.in/yaml.v3"
)

type positionRecord struct {
	State     string    `yaml:"state"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type positionFile struct {
	Positions map[string]positionRecord `yaml:"positions"`
}

// FileStore 把状态写入单个 yaml 文件，先写临时文件再 rename
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load(ctx context.Context, symbol string) (model.PositionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return model.StateFlat, err
	}
	rec, ok := doc.Positions[symbol]
	if !ok {
		return model.StateFlat, nil
	}
	return model.ParsePositionState(rec.State)
}

func (f *FileStore) Save(ctx context.Context, symbol string, state model.PositionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Positions[symbol] = positionRecord{State: state.String(), UpdatedAt: time.Now().UTC()}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode position state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write position state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace position state: %w", err)
	}
	return nil
}

func (f *FileStore) read() (positionFile, error) {
	doc := positionFile{Positions: make(map[string]positionRecord)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read position state: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode position state %s: %w", f.path, err)
	}
	if doc.Positions == nil {
		doc.Positions = make(map[string]positionRecord)
	}
	return doc, nil
}

func (f *FileStore) Close() error { return nil }
