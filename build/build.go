// Package build reports version information of the simulation binary. Release
// builds inject a JSON document with -ldflags, other builds fall back to the
// module information embedded by the Go toolchain.
package build

import (
	"encoding/json"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// Injected is set at link time:
//
//	go build -ldflags "-X github.com/amp-labs/simulation/build.Injected=$(cat build.json)"
var Injected string //nolint:gochecknoglobals

const unknownVersion = "(devel)"

// Info contains build metadata.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	BuildTime    string            `json:"build_time"` //nolint:tagliatelle
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Platform     string            `json:"platform"`
	Dependencies map[string]string `json:"dependencies"`
}

// Parse deserializes a JSON string into build Info.
// Returns (nil, false) if the input is empty, "{}", or fails to parse.
func Parse(js string) (*Info, bool) {
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		slog.Warn("Failed to parse build info from JSON", "data", js, "error", err)

		return nil, false
	}

	return &info, true
}

// FromBuildInfo converts the toolchain's module information.
func FromBuildInfo(bi *debug.BuildInfo) *Info {
	info := &Info{
		Version:      unknownVersion,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		Dependencies: map[string]string{},
	}

	if bi == nil {
		return info
	}

	if bi.Main.Version != "" {
		info.Version = bi.Main.Version
	}

	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
		case "vcs.time":
			info.GitDate = s.Value
		}
	}

	for _, dep := range bi.Deps {
		info.Dependencies[dep.Path] = dep.Version
	}

	return info
}

// Current returns the injected build info, or the toolchain's when nothing was injected.
func Current() *Info {
	if info, ok := Parse(Injected); ok {
		if info.GoVersion == "" {
			info.GoVersion = runtime.Version()
		}

		if info.Platform == "" {
			info.Platform = runtime.GOOS + "/" + runtime.GOARCH
		}

		return info
	}

	bi, _ := debug.ReadBuildInfo()

	return FromBuildInfo(bi)
}

// String renders the info as human readable lines, dependencies sorted by path.
func (i *Info) String() string {
	var sb strings.Builder

	sb.WriteString("version:    " + i.Version + "\n")

	if i.GitCommit != "" {
		sb.WriteString("commit:     " + i.GitCommit + "\n")
	}

	if i.GitDate != "" {
		sb.WriteString("git date:   " + i.GitDate + "\n")
	}

	if i.BuildTime != "" {
		sb.WriteString("built:      " + i.BuildTime + "\n")
	}

	sb.WriteString("go:         " + i.GoVersion + "\n")
	sb.WriteString("platform:   " + i.Platform + "\n")

	paths := make([]string, 0, len(i.Dependencies))
	for p := range i.Dependencies {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	if len(paths) > 0 {
		sb.WriteString("dependencies:\n")
	}

	for _, p := range paths {
		sb.WriteString("  " + p + " " + i.Dependencies[p] + "\n")
	}

	return sb.String()
}
