// Package hostinfo detects the facts about the current machine that
// trayctl records in snapshots and uses to pick build-specific tweaks.
package hostinfo

import (
	"context"
	"os"
	"os/user"
	"regexp"
	"strconv"

	"github.com/shirou/gopsutil/v3/host"
)

// Info describes the host.
type Info struct {
	Hostname        string `json:"hostname" yaml:"hostname"`
	User            string `json:"user" yaml:"user"`
	OS              string `json:"os" yaml:"os"`
	Platform        string `json:"platform" yaml:"platform"`
	PlatformVersion string `json:"platform_version" yaml:"platform_version"`
	KernelVersion   string `json:"kernel_version" yaml:"kernel_version"`
	// Build is the Windows build number, 0 when unknown.
	Build int `json:"build" yaml:"build"`
	// BuildSource is "override", "detected" or "unknown".
	BuildSource string `json:"build_source" yaml:"build_source"`
}

// InfoFunc returns host facts; host.InfoWithContext in production.
type InfoFunc func(ctx context.Context) (*host.InfoStat, error)

// Detect gathers host facts. A positive buildOverride replaces detection.
// Detection failures are not fatal: the fields stay empty.
func Detect(ctx context.Context, buildOverride int) Info {
	return detect(ctx, buildOverride, host.InfoWithContext)
}

func detect(ctx context.Context, buildOverride int, infoFn InfoFunc) Info {
	info := Info{BuildSource: "unknown"}

	if stat, err := infoFn(ctx); err == nil && stat != nil {
		info.Hostname = stat.Hostname
		info.OS = stat.OS
		info.Platform = stat.Platform
		info.PlatformVersion = stat.PlatformVersion
		info.KernelVersion = stat.KernelVersion
		if info.OS == "windows" {
			if b := ParseBuild(stat.KernelVersion); b > 0 {
				info.Build, info.BuildSource = b, "detected"
			} else if b := ParseBuild(stat.PlatformVersion); b > 0 {
				info.Build, info.BuildSource = b, "detected"
			}
		}
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	if u, err := user.Current(); err == nil {
		info.User = u.Username
	}
	if buildOverride > 0 {
		info.Build, info.BuildSource = buildOverride, "override"
	}
	return info
}

var (
	buildWord   = regexp.MustCompile(`(?i)build\s+(\d{4,6})`)
	buildDotted = regexp.MustCompile(`^\d+\.\d+\.(\d{4,6})`)
)

// ParseBuild extracts a Windows build number from strings such as
// "10.0.22631 Build 22631" or "10.0.19045.4046". Returns 0 when none.
func ParseBuild(s string) int {
	if m := buildWord.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := buildDotted.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}
