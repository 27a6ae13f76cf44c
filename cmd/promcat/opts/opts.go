package opts

import (
	"github.com/bcf-ngs/promcat/pkg/config"
	"github.com/bcf-ngs/promcat/pkg/ui"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config  *config.Config
	Console *ui.Console
}
