package canonical

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/S1M0N38/cr-db/internal/domain"
)

// ErrMalformedBattle marks a record missing data needed to store it.
var ErrMalformedBattle = errors.New("malformed battle")

const (
	battleTimeLayout = "20060102T150405"

	// ".000Z" in "20240101T120000.000Z"
	battleTimeSuffix = 5
)

// Filter decides which battles are in scope.
type Filter struct {
	modes       map[int]struct{}
	minTrophies int
}

func NewFilter(modes []int, minTrophies int) Filter {
	f := Filter{
		modes:       make(map[int]struct{}, len(modes)),
		minTrophies: minTrophies,
	}
	for _, m := range modes {
		f.modes[m] = struct{}{}
	}
	return f
}

// IsEligible reports whether b is an allowed ladder mode with both sides
// starting above the trophy threshold.
func (f Filter) IsEligible(b api.Battle) bool {
	if _, ok := f.modes[b.GameMode.ID]; !ok {
		return false
	}
	if len(b.Team) == 0 || len(b.Opponent) == 0 {
		return false
	}
	return f.aboveThreshold(b.Team[0]) && f.aboveThreshold(b.Opponent[0])
}

func (f Filter) aboveThreshold(p api.Participant) bool {
	return p.StartingTrophies != nil && *p.StartingTrophies > f.minTrophies
}

// NormalizeTag strips the leading marker ('#') and upper-cases the rest.
func NormalizeTag(raw string) string {
	tag := strings.TrimLeftFunc(strings.TrimSpace(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToUpper(tag)
}

// NormalizeDeck returns the card ids of cards sorted ascending.
func NormalizeDeck(cards []api.Card) (domain.Cards, error) {
	var out domain.Cards
	if len(cards) != constants.DeckSize {
		return out, fmt.Errorf("%w: deck has %d cards", ErrMalformedBattle, len(cards))
	}

	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	sort.Ints(ids)
	copy(out[:], ids)
	return out, nil
}

// ParseBattleTime parses the API battle time after dropping its trailing
// millisecond and zone suffix.
func ParseBattleTime(raw string) (time.Time, error) {
	if len(raw) <= battleTimeSuffix {
		return time.Time{}, fmt.Errorf("%w: battle time %q", ErrMalformedBattle, raw)
	}
	t, err := time.ParseInLocation(battleTimeLayout, raw[:len(raw)-battleTimeSuffix], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: battle time %q: %v", ErrMalformedBattle, raw, err)
	}
	return t, nil
}

// Canonicalize converts b into a canonical battle. Deck ids are left zero.
func Canonicalize(b api.Battle) (domain.Battle, error) {
	if len(b.Team) == 0 || len(b.Opponent) == 0 {
		return domain.Battle{}, fmt.Errorf("%w: missing team or opponent", ErrMalformedBattle)
	}

	t, err := ParseBattleTime(b.BattleTime)
	if err != nil {
		return domain.Battle{}, err
	}

	team, err := side(b.Team[0])
	if err != nil {
		return domain.Battle{}, err
	}
	opponent, err := side(b.Opponent[0])
	if err != nil {
		return domain.Battle{}, err
	}
	if team.Tag == opponent.Tag {
		return domain.Battle{}, fmt.Errorf("%w: both sides are %s", ErrMalformedBattle, team.Tag)
	}

	a, bb := OrderSides(team, opponent)
	return domain.Battle{Time: t, A: a, B: bb}, nil
}

// OrderSides returns x and y with the smaller tag first. Sides move whole.
func OrderSides(x, y domain.Side) (domain.Side, domain.Side) {
	if y.Tag < x.Tag {
		return y, x
	}
	return x, y
}

func side(p api.Participant) (domain.Side, error) {
	tag := NormalizeTag(p.Tag)
	if tag == "" {
		return domain.Side{}, fmt.Errorf("%w: empty tag", ErrMalformedBattle)
	}
	if p.StartingTrophies == nil {
		return domain.Side{}, fmt.Errorf("%w: %s has no starting trophies", ErrMalformedBattle, tag)
	}

	cards, err := NormalizeDeck(p.Cards)
	if err != nil {
		return domain.Side{}, fmt.Errorf("%s: %w", tag, err)
	}

	return domain.Side{
		Tag:      tag,
		Trophies: *p.StartingTrophies,
		Crowns:   p.Crowns,
		Cards:    cards,
	}, nil
}
