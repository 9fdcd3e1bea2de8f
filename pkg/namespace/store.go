package namespace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/snapshot"
	"github.com/marmos91/wirecache/pkg/wire"
)

// Store is an in-memory namespace supporting the full capability set for
// one key/value schema pair. MGET, MEXISTS and MDEL derive from the
// single-key operations, so Get stays the single point of truth for lookup
// semantics; MSET stores its entries through SetAll under one lock.
//
// A Store is safe for concurrent use from any number of connections.
type Store[K comparable, V any] struct {
	name   string
	keys   wire.Codec[K]
	values wire.Codec[V]
	snap   snapshot.Snapshotter

	mu      sync.RWMutex
	entries map[K]V
}

// StoreOption configures a Store at construction.
type StoreOption[K comparable, V any] func(*Store[K, V])

// WithSnapshotter enables the SAVE capability, persisting through s.
// A Store without a snapshotter rejects SAVE as unsupported.
func WithSnapshotter[K comparable, V any](s snapshot.Snapshotter) StoreOption[K, V] {
	return func(st *Store[K, V]) {
		st.snap = s
	}
}

// NewStore creates an empty store named name with the given schemas.
func NewStore[K comparable, V any](name string, keys wire.Codec[K], values wire.Codec[V], opts ...StoreOption[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		name:    name,
		keys:    keys,
		values:  values,
		entries: make(map[K]V),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the namespace name used in logs.
func (s *Store[K, V]) Name() string {
	return s.name
}

// Get returns the value stored under key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// SetAll stores every entry of m.
func (s *Store[K, V]) SetAll(m map[K]V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range m {
		s.entries[k] = v
	}
}

// Del removes key. Deleting an absent key is not an error.
func (s *Store[K, V]) Del(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Keys returns all stored keys. Order is unspecified.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]K, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Exists reports whether key is stored.
func (s *Store[K, V]) Exists(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of stored entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save encodes the current contents and hands them to the snapshotter.
func (s *Store[K, V]) Save(ctx context.Context) error {
	if s.snap == nil {
		return fmt.Errorf("namespace %s has no snapshotter", s.name)
	}

	start := time.Now()

	var buf bytes.Buffer
	s.mu.RLock()
	err := wire.WriteMap(&buf, s.keys, s.values, s.entries)
	count := len(s.entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode namespace %s: %w", s.name, err)
	}

	if err := s.snap.Save(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("save namespace %s: %w", s.name, err)
	}

	logger.Info("Namespace saved",
		"namespace", s.name,
		"entries", count,
		"duration_ms", logger.Duration(start))
	return nil
}

// Load restores contents from the snapshotter, replacing anything already
// stored. A missing snapshot leaves the store empty and is not an error.
func (s *Store[K, V]) Load(ctx context.Context) error {
	if s.snap == nil {
		return nil
	}

	data, err := s.snap.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load namespace %s: %w", s.name, err)
	}

	entries, err := wire.ReadMap(bufio.NewReader(bytes.NewReader(data)), s.keys, s.values)
	if err != nil {
		return fmt.Errorf("decode namespace %s snapshot: %w", s.name, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	logger.Info("Namespace restored", "namespace", s.name, "entries", len(entries))
	return nil
}

// Handle decodes one command's arguments, executes it, and writes the
// reply. Decode and write failures are returned as-is and end the
// connection; command-level failures travel in the reply status.
func (s *Store[K, V]) Handle(ctx context.Context, op protocol.Opcode, conn *protocol.Conn) error {
	switch op {
	case protocol.OpGet:
		key, err := s.keys.Decode(conn.R)
		if err != nil {
			return err
		}
		v, ok := s.Get(key)
		return wire.WriteOption(conn.W, s.values, v, ok)

	case protocol.OpMGet:
		keys, err := wire.ReadSeq(conn.R, s.keys)
		if err != nil {
			return err
		}
		if err := wire.WriteUint32(conn.W, uint32(len(keys))); err != nil {
			return err
		}
		for _, key := range keys {
			v, ok := s.Get(key)
			if err := wire.WriteOption(conn.W, s.values, v, ok); err != nil {
				return err
			}
		}
		return nil

	case protocol.OpKeys:
		return wire.WriteSeq(conn.W, s.keys, s.Keys())

	case protocol.OpExists:
		key, err := s.keys.Decode(conn.R)
		if err != nil {
			return err
		}
		return wire.WriteBool(conn.W, s.Exists(key))

	case protocol.OpMExists:
		keys, err := wire.ReadSeq(conn.R, s.keys)
		if err != nil {
			return err
		}
		flags := make([]bool, len(keys))
		for i, key := range keys {
			flags[i] = s.Exists(key)
		}
		return wire.WriteSeq(conn.W, wire.BoolCodec, flags)

	case protocol.OpSet:
		key, err := s.keys.Decode(conn.R)
		if err != nil {
			return err
		}
		value, err := s.values.Decode(conn.R)
		if err != nil {
			return err
		}
		s.Set(key, value)
		return conn.WriteStatus(0)

	case protocol.OpMSet:
		entries, err := wire.ReadMap(conn.R, s.keys, s.values)
		if err != nil {
			return err
		}
		s.SetAll(entries)
		return conn.WriteStatus(0)

	case protocol.OpDel:
		key, err := s.keys.Decode(conn.R)
		if err != nil {
			return err
		}
		s.Del(key)
		return conn.WriteStatus(0)

	case protocol.OpMDel:
		keys, err := wire.ReadSeq(conn.R, s.keys)
		if err != nil {
			return err
		}
		for _, key := range keys {
			s.Del(key)
		}
		return conn.WriteStatus(0)

	case protocol.OpSave:
		if s.snap == nil {
			return fmt.Errorf("%w: %s on namespace %s", protocol.ErrUnsupportedOpcode, op, s.name)
		}
		if err := s.Save(ctx); err != nil {
			logger.Error("Namespace save failed", "namespace", s.name, "error", err)
			return conn.WriteStatus(1)
		}
		return conn.WriteStatus(0)

	default:
		return fmt.Errorf("%w: %s on namespace %s", protocol.ErrUnsupportedOpcode, op, s.name)
	}
}

// ControlListener reacts to broadcast signals. A SAVE signal snapshots the
// store when persistence is configured; other signals are ignored.
func (s *Store[K, V]) ControlListener(ctx context.Context, signals <-chan protocol.Opcode) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig != protocol.OpSave || s.snap == nil {
				continue
			}
			if err := s.Save(ctx); err != nil {
				logger.Error("Save on control signal failed",
					"namespace", s.name, "error", err)
			}
		}
	}
}
