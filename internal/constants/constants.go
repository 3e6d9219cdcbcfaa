package constants

import "time"

const (
	DefaultStaleness    = 3600 * time.Second
	DefaultRequestDelay = 5 * time.Second
	DefaultIdleWait     = 60 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
)

const (
	// single writer; pragmas are per connection so the one connection is never recycled
	DBMaxOpenConns = 1
	DBMaxIdleConns = 1
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultSeedPlayer  = "G9YV9GR8R"
	DefaultMinTrophies = 6600
	DefaultAPIBaseURL  = "https://api.clashroyale.com/v1"
	DefaultTokenFile   = "token.txt"
	DefaultDBPath      = "cr.db"
)

// Game mode ids accepted as ranked ladder.
var DefaultGameModes = []int{72000006, 72000201}

const DeckSize = 8
