package fx

import (
	"testing"

	"github.com/S1M0N38/cr-db/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestCrawlModuleGraph(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(fx.Supply(config.Overrides{}), CrawlModule))
}

func TestModuleGraph(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(fx.Supply(config.Overrides{}), Module))
}
