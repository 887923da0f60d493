package version

// Version is stamped at build time:
// -ldflags "-X github.com/rxtech-lab/argo-backtest/internal/version.Version=1.2.3"
// "main" marks a development build.
var Version = "main"

// GetVersion returns the version of the backtester binary.
func GetVersion() string {
	return Version
}
