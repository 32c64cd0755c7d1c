package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version = "v1.2.3"
	GitCommit = "abc123"

	info := Get()
	if info.Version != "v1.2.3" || info.GitCommit != "abc123" {
		t.Errorf("Get() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}

	s := info.String()
	if !strings.HasPrefix(s, "v1.2.3 (abc123, ") || !strings.Contains(s, info.Platform) {
		t.Errorf("String() = %q", s)
	}
}
