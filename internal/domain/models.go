package domain

import (
	"time"
)

type DeckID int64

type BattleID int64

// Cards is a deck's card ids in ascending order.
type Cards [8]int

type Player struct {
	Tag         string
	LastVisited *time.Time // nil until the first completed visit
}

type Deck struct {
	ID    DeckID
	Cards Cards
}

// Side is one participant of a battle. Cards and DeckID always travel with
// the tag they belong to.
type Side struct {
	Tag      string
	Trophies int
	Crowns   int
	Cards    Cards
	DeckID   DeckID
}

// Battle is a canonical battle: A.Tag < B.Tag.
type Battle struct {
	ID   BattleID
	Time time.Time
	A    Side
	B    Side
}

// Opponent returns the side that is not tag.
func (b Battle) Opponent(tag string) Side {
	if b.A.Tag == tag {
		return b.B
	}
	return b.A
}

type Resolution struct {
	ID      BattleID
	Existed bool
}

// Snapshot summarizes the store contents.
type Snapshot struct {
	Players        int64      `json:"players"`
	VisitedPlayers int64      `json:"visited_players"`
	Decks          int64      `json:"decks"`
	Battles        int64      `json:"battles"`
	LastVisit      *time.Time `json:"last_visit,omitempty"`
}

// VisitResult is the outcome of crawling one player's battlelog.
type VisitResult struct {
	Tag        string
	Total      int
	Eligible   int
	Inserted   int
	Duplicates int
	Failed     int
	VisitedAt  time.Time
}
