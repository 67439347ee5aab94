package table

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Registry tracks every running table session in the process. Create starts
// a session's loop immediately; Close stops them all and waits.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Session
	wg     sync.WaitGroup
	logger *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		tables: make(map[string]*Session),
		logger: logger.WithPrefix("registry"),
	}
}

// Create builds a session from cfg and runs it under ctx.
func (r *Registry) Create(ctx context.Context, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[cfg.TableID]; exists {
		return nil, fmt.Errorf("table %s already exists", cfg.TableID)
	}
	session := NewSession(cfg)
	r.tables[cfg.TableID] = session
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		session.Run(ctx)
	}()
	r.logger.Info("table created", "table", cfg.TableID, "name", cfg.Name)
	return session, nil
}

// Get looks a session up by table ID.
func (r *Registry) Get(tableID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.tables[tableID]
	return session, ok
}

// List returns all sessions ordered by table name.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.tables))
	for _, s := range r.tables {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Name() < sessions[j].Name()
	})
	return sessions
}

// Remove stops a session and drops it from the registry.
func (r *Registry) Remove(tableID string) {
	r.mu.Lock()
	session, ok := r.tables[tableID]
	delete(r.tables, tableID)
	r.mu.Unlock()
	if ok {
		session.Stop()
		r.logger.Info("table removed", "table", tableID)
	}
}

// Close stops every session and waits for their loops to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	for _, s := range r.tables {
		s.Stop()
	}
	r.tables = make(map[string]*Session)
	r.mu.Unlock()
	r.wg.Wait()
}
