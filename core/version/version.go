// Package version returns panicrx version information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Version records panicrx version information.
type Version struct {
	Version string    `json:"version"`
	Commit  string    `json:"commit"`
	Date    time.Time `json:"date"`
	Dirty   bool      `json:"dirty"`
	Go      string    `json:"go"`
}

func (v Version) String() string {
	return v.Version
}

// ZapFields returns zap fields for logging.
func (v Version) ZapFields() []zap.Field {
	return []zap.Field{
		zap.String("version", v.Version),
		zap.String("commit", v.Commit),
		zap.Bool("dirty", v.Dirty),
		zap.String("go", v.Go),
	}
}

// V contains panicrx version information.
var V = Version{
	Version: "development",
	Commit:  "unknown",
	Date:    time.Now(),
	Dirty:   true,
	Go:      runtime.Version(),
}

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		V.Version = bi.Main.Version
	}

	bs := map[string]string{}
	for _, kv := range bi.Settings {
		bs[kv.Key] = kv.Value
	}
	dt, e := time.Parse(time.RFC3339, bs["vcs.time"])
	if bs["vcs"] != "git" || len(bs["vcs.revision"]) < 12 || e != nil {
		return
	}

	V.Commit = bs["vcs.revision"]
	V.Date = dt
	V.Dirty = bs["vcs.modified"] == "true"
	if V.Version == "development" {
		suffix := ""
		if V.Dirty {
			suffix = "-dirty"
		}
		V.Version = fmt.Sprintf("v0.0.0-%s-%s%s", V.Date.UTC().Format("20060102150405"), V.Commit[:12], suffix)
	}
}
