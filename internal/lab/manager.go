package lab

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/redis/go-redis/v9"
)

// Manager is the process-wide lab manager, set by InitializeManager.
var Manager *LabManager

// LabManager owns every active lab.
type LabManager struct {
	labs   map[string]*Lab // keyed by token
	rdb    *redis.Client   // event fan-out and idle tracking; optional
	config *config.Config
	sink   func(Event) // in-process delivery when Redis is not configured
	mu     sync.RWMutex
}

func NewLabManager(rdb *redis.Client, cfg *config.Config) *LabManager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &LabManager{
		labs:   make(map[string]*Lab),
		rdb:    rdb,
		config: cfg,
	}
}

// InitializeManager creates the global manager and starts its background workers.
func InitializeManager(ctx context.Context, rdb *redis.Client, cfg *config.Config) {
	Manager = NewLabManager(rdb, cfg)
	StartRunner(ctx, Manager, time.Duration(cfg.LabTickMillis)*time.Millisecond)
	StartIdleWorker(ctx, Manager)
}

func (m *LabManager) GetConfig() *config.Config {
	return m.config
}

// SetLocalSink sets where events go when Redis is not configured.
func (m *LabManager) SetLocalSink(f func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = f
}

// CreateLab starts a new lab from a preset.
func (m *LabManager) CreateLab(p Preset) (*Lab, error) {
	m.mu.Lock()
	if m.config.MaxLabs > 0 && len(m.labs) >= m.config.MaxLabs {
		m.mu.Unlock()
		return nil, ErrTooManyLabs
	}

	l, err := New(generateLabID(), generateToken(16), p, m.config.LabMaxIterations)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("create lab from preset %q: %w", p.Name, err)
	}
	m.labs[l.Token] = l
	m.mu.Unlock()

	l.OnStateChanged(func(s Snapshot) {
		m.publish(Event{Type: EventLabState, Token: l.Token, State: &s})
	})
	m.Touch(l.Token)

	log.Printf("[LAB] Created lab %s (token=%s preset=%s)", l.ID, l.Token, p.Name)
	return l, nil
}

// GetLab returns the lab with the given token.
func (m *LabManager) GetLab(token string) (*Lab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.labs[token]
	if !ok {
		return nil, ErrLabNotFound
	}
	return l, nil
}

// RemoveLab closes a lab and tells its viewers.
func (m *LabManager) RemoveLab(token, reason string) error {
	m.mu.Lock()
	l, ok := m.labs[token]
	if ok {
		delete(m.labs, token)
	}
	m.mu.Unlock()
	if !ok {
		return ErrLabNotFound
	}

	if m.rdb != nil {
		if err := m.rdb.ZRem(context.Background(), IdleSetKey, token).Err(); err != nil {
			log.Printf("[REDIS] Failed to drop idle entry for lab %s: %v", token, err)
		}
	}
	m.publish(Event{Type: EventLabClosed, Token: token, Message: reason})
	log.Printf("[LAB] Closed lab %s (token=%s reason=%s)", l.ID, token, reason)
	return nil
}

// Count returns the number of active labs.
func (m *LabManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.labs)
}

// Labs returns the active labs in no particular order.
func (m *LabManager) Labs() []*Lab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Lab, 0, len(m.labs))
	for _, l := range m.labs {
		out = append(out, l)
	}
	return out
}

// Touch records activity on a lab so the idle worker leaves it alone.
func (m *LabManager) Touch(token string) {
	if m.rdb == nil {
		return
	}
	ctx := context.Background()
	deadline := time.Now().Add(time.Duration(m.config.LabIdleSeconds) * time.Second).Unix()
	if err := m.rdb.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(deadline), Member: token}).Err(); err != nil {
		log.Printf("[REDIS] Failed to update idle deadline for lab %s: %v", token, err)
	}
}

func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateLabID() string {
	return "lab_" + generateToken(8)
}
