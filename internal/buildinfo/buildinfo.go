package buildinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// Version is stamped at build time via -ldflags.
var Version = "v0.0.0"

const releasesURL = "https://api.github.com/repos/convoke-ai/convoke/releases/latest"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates compares the running version against the latest GitHub
// release and logs a warning when behind. Best effort: any failure is
// silently ignored so startup never depends on GitHub.
func CheckForUpdates(ctx context.Context, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := version.NewVersion(Version)
	if err != nil {
		return
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		logger.Warn(fmt.Sprintf("running outdated version %s, latest is %s", Version, release.TagName))
	}
}
