package config

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/spiegelsync/spiegel/internal/output"
	"github.com/spiegelsync/spiegel/internal/transform"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "spiegel"

	// DefaultRedownload keeps existing files untouched unless the remote
	// reports a strictly newer modification time. This is the cheapest
	// policy that still picks up genuine updates.
	DefaultRedownload = output.RedownloadNeverSmart

	// DefaultOnConflict asks the user before touching local content the
	// previous run cannot explain. Unattended setups override this with
	// "overwrite" or "skip" in the config file.
	DefaultOnConflict = output.OnConflictPrompt

	// DefaultMaxTasks of 1 serializes all crawling. Remote services
	// differ widely in how much concurrency they tolerate, so the
	// conservative value is the default and users opt into more.
	DefaultMaxTasks = 1
)

// AuthConfig is one named credential provider section.
type AuthConfig struct {
	// Type selects the authenticator implementation. Currently only
	// "simple" is supported.
	Type string `yaml:"type"`

	// Username is the fixed username. Empty means prompt on first use.
	Username string `yaml:"username,omitempty"`

	// Password is the fixed password. Empty means prompt on first use.
	Password string `yaml:"password,omitempty"`
}

// CrawlerConfig is one crawl target section.
type CrawlerConfig struct {
	// Type selects the crawl strategy by its registry name.
	Type string `yaml:"type"`

	// Target is the strategy-specific source, e.g. a directory path for
	// the local strategy.
	Target string `yaml:"target"`

	// OutputDir is the local directory mirrored into. Defaults to the
	// crawler's section name.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Redownload is the refetch policy for files the previous run
	// already produced. One of never, never-smart, always, always-smart.
	Redownload string `yaml:"redownload,omitempty"`

	// OnConflict is the policy for local content the previous run
	// cannot explain. One of prompt, overwrite, skip.
	OnConflict string `yaml:"on_conflict,omitempty"`

	// Transform is the rule expression filtering and renaming remote
	// paths, one rule per line.
	Transform string `yaml:"transform,omitempty"`

	// MaxConcurrentTasks bounds concurrently admitted tasks.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks,omitempty"`

	// MaxConcurrentDownloads bounds concurrently admitted downloads.
	// Defaults to MaxConcurrentTasks.
	MaxConcurrentDownloads int `yaml:"max_concurrent_downloads,omitempty"`

	// DelayBetweenTasks is the minimum interval between the start of
	// any two tasks, in seconds.
	DelayBetweenTasks float64 `yaml:"delay_between_tasks,omitempty"`

	// Auth names the credential provider this crawler authenticates
	// with. It must reference a section under the top-level auth map.
	Auth string `yaml:"auth"`
}

// TaskDelay returns the configured inter-task delay as a duration.
func (c CrawlerConfig) TaskDelay() time.Duration {
	return time.Duration(c.DelayBetweenTasks * float64(time.Second))
}

// File represents the structure of the spiegel configuration file.
type File struct {
	// Auth maps provider names to credential provider sections.
	Auth map[string]AuthConfig `yaml:"auth,omitempty"`

	// Crawlers maps crawler names to crawl target sections.
	Crawlers map[string]CrawlerConfig `yaml:"crawlers,omitempty"`
}

// ApplyDefaults fills in the documented default for every field left at
// its zero value. It is called once after loading, before Validate.
func (cf *File) ApplyDefaults() {
	for name, c := range cf.Crawlers {
		if c.OutputDir == "" {
			c.OutputDir = name
		}
		if c.Redownload == "" {
			c.Redownload = string(DefaultRedownload)
		}
		if c.OnConflict == "" {
			c.OnConflict = string(DefaultOnConflict)
		}
		if c.MaxConcurrentTasks == 0 {
			c.MaxConcurrentTasks = DefaultMaxTasks
		}
		if c.MaxConcurrentDownloads == 0 {
			c.MaxConcurrentDownloads = c.MaxConcurrentTasks
		}
		cf.Crawlers[name] = c
	}
}

// Validate checks every section of the file. It returns the first error
// found, naming the section, the field, the offending value and the
// reason.
//
// Design decision: validation happens here, eagerly after loading,
// rather than at each point of use. A typo in one crawler section must
// abort the program before any crawler starts touching the filesystem.
func (cf *File) Validate() error {
	for name, a := range cf.Auth {
		if a.Type != "simple" {
			return fmt.Errorf("auth %q: field type: value %q: %w", name, a.Type, ErrUnknownAuthType)
		}
	}

	for name, c := range cf.Crawlers {
		if err := validateCrawler(cf, c); err != nil {
			return fmt.Errorf("crawler %q: %w", name, err)
		}
	}
	return nil
}

func validateCrawler(cf *File, c CrawlerConfig) error {
	if c.Type == "" {
		return fmt.Errorf("field type: %w", ErrMissingType)
	}

	if _, err := output.ParseRedownload(c.Redownload); err != nil {
		return fmt.Errorf("field redownload: %w", err)
	}
	if _, err := output.ParseOnConflict(c.OnConflict); err != nil {
		return fmt.Errorf("field on_conflict: %w", err)
	}
	if _, err := transform.New(c.Transform); err != nil {
		return fmt.Errorf("field transform: %w", err)
	}

	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("field max_concurrent_tasks: value %d: %w",
			c.MaxConcurrentTasks, ErrInvalidTaskLimit)
	}
	if c.MaxConcurrentDownloads <= 0 || c.MaxConcurrentDownloads > c.MaxConcurrentTasks {
		return fmt.Errorf("field max_concurrent_downloads: value %d: %w",
			c.MaxConcurrentDownloads, ErrInvalidDownloadLimit)
	}
	if c.DelayBetweenTasks < 0 || math.IsNaN(c.DelayBetweenTasks) || math.IsInf(c.DelayBetweenTasks, 0) {
		return fmt.Errorf("field delay_between_tasks: value %v: %w",
			c.DelayBetweenTasks, ErrInvalidTaskDelay)
	}

	if c.Auth == "" {
		return fmt.Errorf("field auth: %w", ErrMissingAuth)
	}
	if _, ok := cf.Auth[c.Auth]; !ok {
		return fmt.Errorf("field auth: value %q: %w", c.Auth, ErrUnknownAuth)
	}
	return nil
}

// XDGDataDir returns the XDG data directory for spiegel.
// On Linux: ~/.local/share/spiegel
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for spiegel.
// On Linux: ~/.config/spiegel
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
