package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/samcharles93/lattice/pkg/dsg"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	ImageABI  string `json:"image_abi"`
	GoVersion string `json:"go_version,omitempty"`
}

// Resolve merges the link-time values with the VCS stamp the Go toolchain
// embeds in the binary.
func Resolve() Info {
	info := Info{
		Version:  Version,
		Commit:   Commit,
		ImageABI: imageABI(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func String() string {
	info := Resolve()
	var b strings.Builder
	b.WriteString(info.Version)
	if info.Commit != "" {
		b.WriteString(" (")
		b.WriteString(shortCommit(info.Commit))
		if info.Modified {
			b.WriteString("+dirty")
		}
		b.WriteString(")")
	}
	b.WriteString(" dsg/")
	b.WriteString(info.ImageABI)
	return b.String()
}

func imageABI() string {
	return fmt.Sprintf("%d.%d", dsg.CurrentMajor, dsg.CurrentMinor)
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
