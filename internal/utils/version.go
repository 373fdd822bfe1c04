package utils

// BuildInfo describes the binary's provenance and is populated at link time
// via -ldflags, e.g. -X internal/utils.buildInfo.Version=v1.2.3.
type BuildInfo struct {
	Version   string
	BuiltAt   string
	CommitSHA string
}

func (b BuildInfo) String() string {
	return b.Version + " (" + b.CommitSHA + ", " + b.BuiltAt + ")"
}

var buildInfo = BuildInfo{
	Version:   "development",
	BuiltAt:   "unknown",
	CommitSHA: "unknown",
}

// Version returns the running binary's build metadata.
func Version() BuildInfo {
	return buildInfo
}
