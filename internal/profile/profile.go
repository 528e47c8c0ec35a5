package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration for one clawtter process.
// Every path not set explicitly is resolved relative to Data by Validate.
type Profile struct {
	Mode     string
	Data     string
	Addr     string
	LogLevel string

	// Artifact and state locations
	PostsDir       string
	MoodFile       string
	ScheduleFile   string
	LockFile       string
	InterestFile   string
	HealthReport   string
	RejectionLog   string
	MetricsFile    string
	ProviderConfig string
	PersonaConfig  string
	MemoryDir      string
	BlogDir        string
	SiteDir        string
	SiteURL        string
	PushScript     string

	// External readers
	SocialCLI      string
	TwitterDigest  string
	CommunityFeed  string
	ProjectDirs    []string
	Timezone       string
	LockMaxAge     time.Duration
	ActivityWindow time.Duration

	// Last-resort endpoint credentials
	LastResortAPIKey string
	GeminiAPIKey     string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location resolves Timezone, falling back to the local zone.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("Unknown timezone, using local", "timezone", p.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Values already set on the profile (from flags) win over the environment.
func (p *Profile) FromEnv() {
	p.PostsDir = firstNonEmpty(p.PostsDir, os.Getenv("CLAWTTER_POSTS_DIR"))
	p.MemoryDir = firstNonEmpty(p.MemoryDir, os.Getenv("CLAWTTER_MEMORY_DIR"))
	p.BlogDir = firstNonEmpty(p.BlogDir, os.Getenv("CLAWTTER_BLOG_DIR"))
	p.SiteDir = firstNonEmpty(p.SiteDir, os.Getenv("CLAWTTER_SITE_DIR"))
	p.PushScript = firstNonEmpty(p.PushScript, os.Getenv("CLAWTTER_PUSH_SCRIPT"))
	p.SiteURL = firstNonEmpty(p.SiteURL, os.Getenv("CLAWTTER_SITE_URL"))
	p.LogLevel = firstNonEmpty(p.LogLevel, os.Getenv("CLAWTTER_LOG_LEVEL"))
	p.ProviderConfig = firstNonEmpty(p.ProviderConfig, os.Getenv("CLAWTTER_PROVIDER_CONFIG"))
	p.PersonaConfig = firstNonEmpty(p.PersonaConfig, os.Getenv("CLAWTTER_PERSONA_CONFIG"))

	p.SocialCLI = getEnvOrDefault("CLAWTTER_SOCIAL_CLI", "bird-x")
	p.TwitterDigest = getEnvOrDefault("CLAWTTER_TWITTER_DIGEST", "")
	p.CommunityFeed = getEnvOrDefault("CLAWTTER_COMMUNITY_FEED", "")
	p.Timezone = getEnvOrDefault("CLAWTTER_TIMEZONE", firstNonEmpty(p.Timezone, "Asia/Tokyo"))

	if dirs := os.Getenv("CLAWTTER_PROJECT_DIRS"); dirs != "" {
		p.ProjectDirs = filepath.SplitList(dirs)
	}

	p.LockMaxAge = time.Duration(getEnvOrDefaultInt("CLAWTTER_LOCK_MAX_AGE_SECONDS", 600)) * time.Second
	p.ActivityWindow = time.Duration(getEnvOrDefaultInt("CLAWTTER_ACTIVITY_WINDOW_MINUTES", 60)) * time.Minute

	p.LastResortAPIKey = getEnvOrDefault("CLAWTTER_ZHIPU_API_KEY", "")
	p.GeminiAPIKey = getEnvOrDefault("CLAWTTER_GEMINI_API_KEY", os.Getenv("GEMINI_API_KEY"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalises the mode, resolves every path against Data and
// creates the state and posts directories.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	resolve := func(current, def string) string {
		if current == "" {
			current = def
		}
		if current == "" || filepath.IsAbs(current) {
			return current
		}
		return filepath.Join(dataDir, current)
	}

	p.PostsDir = resolve(p.PostsDir, "posts")
	p.MoodFile = resolve(p.MoodFile, filepath.Join("state", "mood.json"))
	p.ScheduleFile = resolve(p.ScheduleFile, filepath.Join("state", "next_schedule.json"))
	p.LockFile = resolve(p.LockFile, filepath.Join("state", "clawtter.lock"))
	p.InterestFile = resolve(p.InterestFile, filepath.Join("state", "interest-drift.json"))
	p.HealthReport = resolve(p.HealthReport, filepath.Join("state", "model-status.json"))
	p.RejectionLog = resolve(p.RejectionLog, filepath.Join("state", "rejected_posts.log"))
	p.MetricsFile = resolve(p.MetricsFile, filepath.Join("state", "clawtter.prom"))
	p.ProviderConfig = resolve(p.ProviderConfig, filepath.Join("config", "providers.yaml"))
	p.PersonaConfig = resolve(p.PersonaConfig, filepath.Join("config", "persona.yaml"))
	p.MemoryDir = resolve(p.MemoryDir, "memory")
	p.BlogDir = resolve(p.BlogDir, "")
	p.SiteDir = resolve(p.SiteDir, "site")
	p.PushScript = resolve(p.PushScript, "")

	if p.LockMaxAge <= 0 {
		p.LockMaxAge = 10 * time.Minute
	}
	if p.ActivityWindow <= 0 {
		p.ActivityWindow = time.Hour
	}
	if p.Timezone == "" {
		p.Timezone = "Asia/Tokyo"
	}
	if p.Addr == "" {
		p.Addr = ":8087"
	}

	for _, dir := range []string{p.PostsDir, filepath.Dir(p.MoodFile), filepath.Dir(p.ScheduleFile), filepath.Dir(p.LockFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	return nil
}
