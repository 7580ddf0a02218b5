// Package update checks GitHub for a newer released version. It only
// ever reports; installing a new binary is left to the user's package
// manager.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	githubAPIURL     = "https://api.github.com/repos/agentbridge/agentbridge/releases/latest"
	cacheFileName    = "update_check.json"
	cacheDuration    = 1 * time.Hour
	devCacheDuration = 15 * time.Minute
)

// Release is the subset of the GitHub release payload we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	IsDevBuild     bool
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
	URL       string    `json:"url"`
}

// Check returns info when a newer version exists, nil when current
// is up to date. A cache in cacheDir keeps repeated invocations from
// hammering the GitHub API. token is optional and only raises the
// API rate limit.
func Check(currentVersion, cacheDir, token string, force bool) (*Info, error) {
	cleanVersion := strings.TrimPrefix(currentVersion, "v")
	isDevBuild := IsDevBuildVersion(cleanVersion)

	if !force {
		if info, done := checkCache(currentVersion, cleanVersion, isDevBuild, cacheDir); done {
			return info, nil
		}
	}

	release, err := fetchLatestRelease(token)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	saveCache(release.TagName, release.HTMLURL, cacheDir)

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	if !isDevBuild && !isNewer(latestVersion, cleanVersion) {
		return nil, nil
	}

	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		ReleaseURL:     release.HTMLURL,
		IsDevBuild:     isDevBuild,
	}, nil
}

func fetchLatestRelease(token string) (*Release, error) {
	req, err := http.NewRequest("GET", githubAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "agentbridge-update")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}

func loadCache(cacheDir string) (*cachedCheck, error) {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheFileName))
	if err != nil {
		return nil, err
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func checkCache(
	currentVersion, cleanVersion string,
	isDevBuild bool,
	cacheDir string,
) (*Info, bool) {
	cached, err := loadCache(cacheDir)
	if err != nil {
		return nil, false
	}

	cacheWindow := cacheDuration
	if isDevBuild {
		cacheWindow = devCacheDuration
	}
	if time.Since(cached.CheckedAt) >= cacheWindow {
		return nil, false
	}

	latestVersion := strings.TrimPrefix(cached.Version, "v")

	if isDevBuild {
		return &Info{
			CurrentVersion: currentVersion,
			LatestVersion:  cached.Version,
			ReleaseURL:     cached.URL,
			IsDevBuild:     true,
		}, true
	}
	if !isNewer(latestVersion, cleanVersion) {
		return nil, true
	}
	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  cached.Version,
		ReleaseURL:     cached.URL,
	}, true
}

func saveCache(version, url, cacheDir string) {
	data, err := json.Marshal(cachedCheck{
		CheckedAt: time.Now(),
		Version:   version,
		URL:       url,
	})
	if err != nil {
		return
	}
	cachePath := filepath.Join(cacheDir, cacheFileName)
	_ = os.MkdirAll(filepath.Dir(cachePath), 0o755)
	_ = os.WriteFile(cachePath, data, 0o600)
}

func extractBaseSemver(v string) string {
	v = strings.TrimPrefix(v, "v")
	if len(v) == 0 || v[0] < '0' || v[0] > '9' {
		return ""
	}
	if !strings.Contains(v, ".") {
		return ""
	}
	if idx := strings.Index(v, "-"); idx > 0 {
		v = v[:idx]
	}
	return v
}

var gitDescribePattern = regexp.MustCompile(`-\d+-g[0-9a-f]+(-dirty)?$`)

// IsDevBuildVersion returns true if the version is a dev build.
func IsDevBuildVersion(v string) bool {
	v = strings.TrimPrefix(v, "v")
	if extractBaseSemver(v) == "" {
		return true
	}
	return gitDescribePattern.MatchString(v)
}

func isNewer(v1, v2 string) bool {
	if extractBaseSemver(v1) == "" || extractBaseSemver(v2) == "" {
		return false
	}
	return semver.Compare(normalizeSemver(v1), normalizeSemver(v2)) > 0
}

var prereleaseNumericPattern = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)

func normalizeSemver(v string) string {
	v = strings.TrimPrefix(v, "v")
	if gitDescribePattern.MatchString(v) {
		v = gitDescribePattern.ReplaceAllString(v, "")
	}
	if idx := strings.Index(v, "-"); idx > 0 {
		base := v[:idx]
		prerelease := normalizePrereleaseIdentifiers(v[idx+1:])
		v = base + "-" + prerelease
	}
	return "v" + v
}

// normalizePrereleaseIdentifiers rewrites "rc1" to "rc.1" so semver
// comparison orders rc2 before rc10.
func normalizePrereleaseIdentifiers(prerelease string) string {
	parts := strings.Split(prerelease, ".")
	var result []string
	for _, part := range parts {
		matches := prereleaseNumericPattern.FindStringSubmatch(part)
		if matches != nil {
			letters, digits := matches[1], matches[2]
			if len(digits) > 1 && digits[0] == '0' {
				result = append(result, part)
			} else {
				result = append(result, letters, digits)
			}
		} else {
			result = append(result, part)
		}
	}
	return strings.Join(result, ".")
}
