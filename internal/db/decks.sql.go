package db

import "context"

const getDeckIDByCards = `
SELECT deck_id FROM decks
WHERE card_1 = ? AND card_2 = ? AND card_3 = ? AND card_4 = ?
  AND card_5 = ? AND card_6 = ? AND card_7 = ? AND card_8 = ?`

func (q *Queries) GetDeckIDByCards(ctx context.Context, cards [8]int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getDeckIDByCards,
		cards[0], cards[1], cards[2], cards[3],
		cards[4], cards[5], cards[6], cards[7],
	).Scan(&id)
	return id, err
}

const insertDeck = `
INSERT INTO decks (card_1, card_2, card_3, card_4, card_5, card_6, card_7, card_8)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertDeck(ctx context.Context, cards [8]int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertDeck,
		cards[0], cards[1], cards[2], cards[3],
		cards[4], cards[5], cards[6], cards[7],
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getDeck = `
SELECT deck_id, card_1, card_2, card_3, card_4, card_5, card_6, card_7, card_8
FROM decks WHERE deck_id = ?`

func (q *Queries) GetDeck(ctx context.Context, id int64) (Deck, error) {
	var d Deck
	err := q.db.QueryRowContext(ctx, getDeck, id).Scan(
		&d.DeckID,
		&d.Card1, &d.Card2, &d.Card3, &d.Card4,
		&d.Card5, &d.Card6, &d.Card7, &d.Card8,
	)
	return d, err
}

const countDecks = `SELECT COUNT(*) FROM decks`

func (q *Queries) CountDecks(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countDecks).Scan(&n)
	return n, err
}
