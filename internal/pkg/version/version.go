package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	BuildTime = ""
	GoVersion = runtime.Version()
	GitCommit = ""
)

func Short() string {
	// v1.0.0-abcdef01 這種格式
	if GitCommit != "" {
		return fmt.Sprintf("v%s (%s)", Version, GitCommit)
	}
	return "v" + Version
}

func Info() string {
	return fmt.Sprintf(
		"Orbis Updater v%s\nBuild Time: %s\nGo Version: %s\nGit Commit: %s",
		Version, BuildTime, GoVersion, GitCommit,
	)
}
