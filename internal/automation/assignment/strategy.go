// Package assignment picks the owner for a new or reassigned lead.
package assignment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	team "leadflow_backend/internal/team/domain"

	"github.com/google/uuid"
)

// Method is the distribution strategy.
type Method string

const (
	RoundRobin   Method = "round_robin"
	LoadBalanced Method = "load_balanced"
)

// ErrEmptyPool is returned when no member is eligible.
var ErrEmptyPool = errors.New("assignment: no active sales reps")

// ParseMethod validates a configured method name.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case RoundRobin, LoadBalanced:
		return m, nil
	default:
		return "", fmt.Errorf("assignment: unknown method %q", raw)
	}
}

// Label is the human readable method name used in notes.
func (m Method) Label() string {
	switch m {
	case RoundRobin:
		return "Round Robin"
	case LoadBalanced:
		return "Load Balanced"
	default:
		return string(m)
	}
}

// LoadFunc returns the number of open contacts owned by a member.
type LoadFunc func(ctx context.Context, memberID uuid.UUID) (int, error)

// CursorStore hands out a monotonically increasing counter per key,
// starting at 0.
type CursorStore interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Strategy selects pool members. Round robin keeps one cursor per distinct
// pool, so adding or removing a rep starts a new rotation.
type Strategy struct {
	cursor CursorStore
}

func NewStrategy(cursor CursorStore) *Strategy {
	if cursor == nil {
		cursor = NewMemoryCursor()
	}
	return &Strategy{cursor: cursor}
}

// Select picks one member of pool according to method.
func (s *Strategy) Select(ctx context.Context, pool []team.Member, method Method, load LoadFunc) (team.Member, error) {
	if len(pool) == 0 {
		return team.Member{}, ErrEmptyPool
	}

	switch method {
	case RoundRobin:
		return s.nextInRotation(ctx, pool)
	case LoadBalanced:
		return leastLoaded(ctx, pool, load)
	default:
		return team.Member{}, fmt.Errorf("assignment: unknown method %q", method)
	}
}

func (s *Strategy) nextInRotation(ctx context.Context, pool []team.Member) (team.Member, error) {
	n, err := s.cursor.Next(ctx, PoolKey(pool))
	if err != nil {
		return team.Member{}, fmt.Errorf("assignment: advance cursor: %w", err)
	}
	idx := int(n % int64(len(pool)))
	if idx < 0 {
		idx += len(pool)
	}
	return pool[idx], nil
}

// leastLoaded returns the first member with the minimum load, in pool order.
func leastLoaded(ctx context.Context, pool []team.Member, load LoadFunc) (team.Member, error) {
	if load == nil {
		return team.Member{}, errors.New("assignment: load function required")
	}

	best := -1
	bestLoad := 0
	for i, member := range pool {
		current, err := load(ctx, member.ID)
		if err != nil {
			return team.Member{}, fmt.Errorf("assignment: load for %s: %w", member.ID, err)
		}
		if best == -1 || current < bestLoad {
			best = i
			bestLoad = current
		}
	}
	return pool[best], nil
}

// PoolKey identifies a pool by its ordered member IDs.
func PoolKey(pool []team.Member) string {
	h := sha256.New()
	for _, m := range pool {
		h.Write(m.ID[:])
	}
	return "pool:" + hex.EncodeToString(h.Sum(nil)[:12])
}
