package version

import (
	"fmt"
	"runtime"
)

// These are intended to be set via -ldflags at build time.
var (
	version   = "dev"
	commitSHA = ""
	buildDate = ""
)

func Version() string {
	v := version
	if commitSHA != "" {
		v += "+" + commitSHA
	}
	if buildDate != "" {
		v += " (" + buildDate + ")"
	}
	return v
}

// Info is the structured form printed by `oascli version --json`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

func Get() Info {
	return Info{
		Version:   version,
		Commit:    commitSHA,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func UserAgent() string {
	return fmt.Sprintf("oascli/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH)
}
