package repository

import "time"

const (
	// fixed width so text order matches time order
	visitLayout  = "2006-01-02 15:04:05.000000"
	battleLayout = "2006-01-02 15:04:05"
)

type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func formatVisit(t time.Time) string {
	return t.UTC().Format(visitLayout)
}

func parseVisit(s string) (time.Time, error) {
	return time.ParseInLocation(visitLayout, s, time.UTC)
}

func formatBattleTime(t time.Time) string {
	return t.UTC().Format(battleLayout)
}

func parseBattleTime(s string) (time.Time, error) {
	return time.ParseInLocation(battleLayout, s, time.UTC)
}
