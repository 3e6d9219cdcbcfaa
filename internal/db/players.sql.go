package db

import (
	"context"
	"database/sql"
)

const insertPlayerIfAbsent = `INSERT OR IGNORE INTO players (last_visited, tag) VALUES (NULL, ?)`

func (q *Queries) InsertPlayerIfAbsent(ctx context.Context, tag string) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertPlayerIfAbsent, tag)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const updatePlayerLastVisited = `UPDATE players SET last_visited = ? WHERE tag = ?`

type UpdatePlayerLastVisitedParams struct {
	LastVisited string
	Tag         string
}

func (q *Queries) UpdatePlayerLastVisited(ctx context.Context, arg UpdatePlayerLastVisitedParams) error {
	_, err := q.db.ExecContext(ctx, updatePlayerLastVisited, arg.LastVisited, arg.Tag)
	return err
}

const getPlayer = `SELECT last_visited, tag FROM players WHERE tag = ?`

func (q *Queries) GetPlayer(ctx context.Context, tag string) (Player, error) {
	var p Player
	err := q.db.QueryRowContext(ctx, getPlayer, tag).Scan(&p.LastVisited, &p.Tag)
	return p, err
}

// Nulls sort first under ASC in SQLite.
const getNextStalePlayer = `
SELECT tag FROM players
WHERE last_visited IS NULL OR last_visited < ?
ORDER BY last_visited ASC, tag ASC
LIMIT 1`

func (q *Queries) GetNextStalePlayer(ctx context.Context, cutoff string) (string, error) {
	var tag string
	err := q.db.QueryRowContext(ctx, getNextStalePlayer, cutoff).Scan(&tag)
	return tag, err
}

const countPlayers = `SELECT COUNT(*) FROM players`

func (q *Queries) CountPlayers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPlayers).Scan(&n)
	return n, err
}

const countVisitedPlayers = `SELECT COUNT(*), MAX(last_visited) FROM players WHERE last_visited IS NOT NULL`

type CountVisitedPlayersRow struct {
	Count     int64
	LastVisit sql.NullString
}

func (q *Queries) CountVisitedPlayers(ctx context.Context) (CountVisitedPlayersRow, error) {
	var row CountVisitedPlayersRow
	err := q.db.QueryRowContext(ctx, countVisitedPlayers).Scan(&row.Count, &row.LastVisit)
	return row, err
}
