package buildinfo

// Set at build time via -ldflags:
//
//	-X github.com/varsilias/chatease/internal/buildinfo.Version=v0.2.0
var (
	Version = "dev"
	Commit  = "none"
	BuiltAt = "unknown"
)
