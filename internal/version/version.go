package version

import (
	"github.com/prometheus/common/version"
)

// Set at build time with -ldflags "-X github.com/conference-manager/meeting-publisher/internal/version.Revision=..."
var (
	Version  = "dev"
	Revision = "unknown"
	Branch   = "unknown"
)

func init() {
	version.Version = Version
	version.Revision = Revision
	version.Branch = Branch
}

// Info returns a one line description of the running build.
func Info() string {
	return version.Info()
}
