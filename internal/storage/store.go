package storage

import (
	"context"
	"fmt"
	"sync"

	"sentiment-algo-trader/internal/model"
)

// PositionStore 持久化每个标的当前的持仓状态，重启后从正确的状态继续。
// 未保存过的标的返回空仓。
type PositionStore interface {
	Load(ctx context.Context, symbol string) (model.PositionState, error)
	Save(ctx context.Context, symbol string, state model.PositionState) error
	Close() error
}

// New 按配置名称构造存储: memory | file | postgres
func New(kind, path, dsn string) (PositionStore, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path)
	case "postgres":
		return NewPostgresStore(context.Background(), dsn)
	default:
		return nil, fmt.Errorf("unknown state store %q", kind)
	}
}

// MemoryStore 进程内存储，重启后丢失
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]model.PositionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.PositionState)}
}

func (m *MemoryStore) Load(_ context.Context, symbol string) (model.PositionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.states[symbol]; ok {
		return s, nil
	}
	return model.StateFlat, nil
}

func (m *MemoryStore) Save(_ context.Context, symbol string, state model.PositionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[symbol] = state
	return nil
}

func (m *MemoryStore) Close() error { return nil }
