package db

import "context"

const getBattleIDByTimeTag = `SELECT battle_id FROM battles WHERE battle_time = ? AND tag_1 = ?`

type GetBattleIDByTimeTagParams struct {
	BattleTime string
	Tag1       string
}

func (q *Queries) GetBattleIDByTimeTag(ctx context.Context, arg GetBattleIDByTimeTagParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getBattleIDByTimeTag, arg.BattleTime, arg.Tag1).Scan(&id)
	return id, err
}

const insertBattle = `
INSERT INTO battles (
    battle_time,
    tag_1, trophies_1, crowns_1, deck_1,
    tag_2, trophies_2, crowns_2, deck_2
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertBattleParams struct {
	BattleTime string
	Tag1       string
	Trophies1  int64
	Crowns1    int64
	Deck1      int64
	Tag2       string
	Trophies2  int64
	Crowns2    int64
	Deck2      int64
}

func (q *Queries) InsertBattle(ctx context.Context, arg InsertBattleParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertBattle,
		arg.BattleTime,
		arg.Tag1, arg.Trophies1, arg.Crowns1, arg.Deck1,
		arg.Tag2, arg.Trophies2, arg.Crowns2, arg.Deck2,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getBattle = `
SELECT battle_id, battle_time,
       tag_1, trophies_1, crowns_1, deck_1,
       tag_2, trophies_2, crowns_2, deck_2
FROM battles WHERE battle_id = ?`

func (q *Queries) GetBattle(ctx context.Context, id int64) (Battle, error) {
	var b Battle
	err := q.db.QueryRowContext(ctx, getBattle, id).Scan(
		&b.BattleID, &b.BattleTime,
		&b.Tag1, &b.Trophies1, &b.Crowns1, &b.Deck1,
		&b.Tag2, &b.Trophies2, &b.Crowns2, &b.Deck2,
	)
	return b, err
}

const countBattles = `SELECT COUNT(*) FROM battles`

func (q *Queries) CountBattles(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBattles).Scan(&n)
	return n, err
}
