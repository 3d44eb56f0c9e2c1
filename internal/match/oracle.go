package match

import (
	"context"

	"github.com/park285/cheese-board/internal/chess"
	"github.com/park285/cheese-board/internal/game"
)

var _ game.Oracle = (*chess.Oracle)(nil)

// EngineOracle is an oracle owned by one match; Close releases its engine.
type EngineOracle interface {
	game.Oracle
	Close() error
}

// OracleSource opens an oracle for a difficulty tier and reports the resolved tier name.
type OracleSource interface {
	Open(ctx context.Context, difficulty string) (EngineOracle, string, error)
}

type providerSource struct{ p *chess.Provider }

// FromProvider adapts an engine provider.
func FromProvider(p *chess.Provider) OracleSource { return providerSource{p: p} }

func (s providerSource) Open(ctx context.Context, difficulty string) (EngineOracle, string, error) {
	o, err := s.p.Open(ctx, difficulty)
	if err != nil {
		return nil, "", err
	}
	return o, o.Difficulty().Name, nil
}
