package version

// Version is the release of the fetch tool, set at build time with
// -ldflags "-X github.com/ErenCAkpinar/quant-stock-fetcher/internal/version.Version=v1.2.3".
// "main" marks a development build.
var Version = "main"

// GetVersion returns the current version of the tool.
func GetVersion() string {
	return Version
}
