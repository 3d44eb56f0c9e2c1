package record

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// memrepo is the in-memory repository used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID  int64
	byID    map[int64]*Game
	byMatch map[string]*Game
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:    make(map[int64]*Game),
		byMatch: make(map[string]*Game),
	}
}

func (m *memrepo) InsertGame(_ context.Context, game *Game) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.MatchID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byMatch[key]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	cp := clone(game)
	cp.ID = m.nextID
	m.byID[cp.ID] = cp
	m.byMatch[key] = cp
	return cp.ID, nil
}

func (m *memrepo) GetRecentGames(_ context.Context, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	items := make([]*Game, 0, len(m.byID))
	for _, g := range m.byID {
		items = append(items, clone(g))
	}
	m.mu.RUnlock()

	// newest first, ties broken by insertion order
	slices.SortFunc(items, func(a, b *Game) int {
		if c := b.EndedAt.Compare(a.EndedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(_ context.Context, id int64) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.byID[id]; ok {
		return clone(g), nil
	}
	return nil, nil
}

func (m *memrepo) GetGameByMatch(_ context.Context, matchID string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.byMatch[strings.TrimSpace(matchID)]; ok {
		return clone(g), nil
	}
	return nil, nil
}

func clone(g *Game) *Game {
	cp := *g
	cp.MovesUCI = append([]string(nil), g.MovesUCI...)
	cp.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &cp
}
