// Package misc keeps build time information.
package misc

// set with -ldflags "-X twsplit/misc.version=... -X twsplit/misc.gitHash=..."
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "twsplit"

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}

func GetAppName() string {
	return appName
}
