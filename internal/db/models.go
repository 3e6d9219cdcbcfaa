package db

import "database/sql"

type Player struct {
	LastVisited sql.NullString
	Tag         string
}

type Deck struct {
	DeckID int64
	Card1  int64
	Card2  int64
	Card3  int64
	Card4  int64
	Card5  int64
	Card6  int64
	Card7  int64
	Card8  int64
}

type Battle struct {
	BattleID   int64
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
