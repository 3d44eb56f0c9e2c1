package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var ErrDuplicateGame = errors.New("game already recorded")

type Repository interface {
	InsertGame(ctx context.Context, game *Game) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*Game, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	GetGameByMatch(ctx context.Context, matchID string) (*Game, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS cheese_games (
	id             BIGSERIAL PRIMARY KEY,
	match_id       TEXT NOT NULL UNIQUE,
	mode           TEXT NOT NULL,
	difficulty     TEXT NOT NULL DEFAULT '',
	result         TEXT NOT NULL,
	winner         TEXT NOT NULL DEFAULT '',
	method         TEXT NOT NULL DEFAULT '',
	moves_uci      JSONB NOT NULL,
	moves_san      JSONB NOT NULL,
	pgn            TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT,
	white_clock_ms BIGINT,
	black_clock_ms BIGINT
);
CREATE INDEX IF NOT EXISTS cheese_games_ended_at_idx ON cheese_games (ended_at DESC);`

// EnsureSchema creates the games table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// OpenPostgres opens and pings dsn with the pool settings used in production.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertGame(ctx context.Context, game *Game) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game payload")
	}
	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO cheese_games (
			match_id,
			mode,
			difficulty,
			result,
			winner,
			method,
			moves_uci,
			moves_san,
			pgn,
			started_at,
			ended_at,
			duration_ms,
			white_clock_ms,
			black_clock_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (match_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.MatchID,
		game.Mode,
		game.Difficulty,
		game.Result,
		game.Winner,
		game.Method,
		movesUCI,
		movesSAN,
		game.PGN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.WhiteClockMs,
		game.BlackClockMs,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id.Int64, nil
}

const selectColumns = `
		SELECT
			id,
			match_id,
			mode,
			difficulty,
			result,
			winner,
			method,
			moves_uci,
			moves_san,
			pgn,
			started_at,
			ended_at,
			duration_ms,
			white_clock_ms,
			black_clock_ms
		FROM cheese_games`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*Game, error) {
	var (
		game         Game
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
		whiteMS      sql.NullInt64
		blackMS      sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.MatchID,
		&game.Mode,
		&game.Difficulty,
		&game.Result,
		&game.Winner,
		&game.Method,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&whiteMS,
		&blackMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	game.WhiteClockMs = whiteMS.Int64
	game.BlackClockMs = blackMS.Int64
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	games := make([]*Game, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func (r *repository) GetGame(ctx context.Context, id int64) (*Game, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *repository) GetGameByMatch(ctx context.Context, matchID string) (*Game, error) {
	return r.getOne(ctx, selectColumns+` WHERE match_id = $1`, matchID)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*Game, error) {
	game, err := scanGame(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	return game, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
