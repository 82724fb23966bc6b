package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validFile returns a minimal configuration that passes validation.
func validFile() *File {
	return &File{
		Auth: map[string]AuthConfig{
			"login": {Type: "simple", Username: "alice"},
		},
		Crawlers: map[string]CrawlerConfig{
			"course": {
				Type:   "local",
				Target: "/srv/remote",
				Auth:   "login",
			},
		},
	}
}

// TestApplyDefaults verifies the documented defaults of a crawler
// section. This serves as living documentation: changes to defaults
// must be intentional.
func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cf := validFile()
	cf.ApplyDefaults()
	c := cf.Crawlers["course"]

	t.Run("output_dir defaults to the section name", func(t *testing.T) {
		t.Parallel()
		if c.OutputDir != "course" {
			t.Errorf("expected output_dir 'course', got %q", c.OutputDir)
		}
	})

	t.Run("redownload defaults to never-smart", func(t *testing.T) {
		t.Parallel()
		if c.Redownload != "never-smart" {
			t.Errorf("expected redownload 'never-smart', got %q", c.Redownload)
		}
	})

	t.Run("on_conflict defaults to prompt", func(t *testing.T) {
		t.Parallel()
		if c.OnConflict != "prompt" {
			t.Errorf("expected on_conflict 'prompt', got %q", c.OnConflict)
		}
	})

	t.Run("task limit defaults to 1", func(t *testing.T) {
		t.Parallel()
		if c.MaxConcurrentTasks != 1 {
			t.Errorf("expected max_concurrent_tasks 1, got %d", c.MaxConcurrentTasks)
		}
	})

	t.Run("download limit defaults to the task limit", func(t *testing.T) {
		t.Parallel()

		cf := validFile()
		c := cf.Crawlers["course"]
		c.MaxConcurrentTasks = 4
		cf.Crawlers["course"] = c
		cf.ApplyDefaults()

		if got := cf.Crawlers["course"].MaxConcurrentDownloads; got != 4 {
			t.Errorf("expected max_concurrent_downloads 4, got %d", got)
		}
	})

	t.Run("delay defaults to zero", func(t *testing.T) {
		t.Parallel()
		if c.TaskDelay() != 0 {
			t.Errorf("expected zero delay, got %v", c.TaskDelay())
		}
	})

	t.Run("explicit values survive", func(t *testing.T) {
		t.Parallel()

		cf := validFile()
		c := cf.Crawlers["course"]
		c.OutputDir = "elsewhere"
		c.Redownload = "always"
		cf.Crawlers["course"] = c
		cf.ApplyDefaults()

		got := cf.Crawlers["course"]
		if got.OutputDir != "elsewhere" || got.Redownload != "always" {
			t.Errorf("explicit values were overwritten: %+v", got)
		}
	})
}

func TestTaskDelay(t *testing.T) {
	t.Parallel()

	c := CrawlerConfig{DelayBetweenTasks: 0.5}
	if got := c.TaskDelay(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid file passes", func(t *testing.T) {
		t.Parallel()

		cf := validFile()
		cf.ApplyDefaults()
		if err := cf.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*File)
		wantErr error
	}{
		{
			name:    "missing crawler type",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.Type = "" }) },
			wantErr: ErrMissingType,
		},
		{
			name:    "zero task limit",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.MaxConcurrentTasks = 0 }) },
			wantErr: ErrInvalidTaskLimit,
		},
		{
			name:    "negative task limit",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.MaxConcurrentTasks = -2 }) },
			wantErr: ErrInvalidTaskLimit,
		},
		{
			name: "download limit above task limit",
			mutate: func(cf *File) {
				mutateCrawler(cf, func(c *CrawlerConfig) {
					c.MaxConcurrentTasks = 2
					c.MaxConcurrentDownloads = 3
				})
			},
			wantErr: ErrInvalidDownloadLimit,
		},
		{
			name:    "negative delay",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.DelayBetweenTasks = -1 }) },
			wantErr: ErrInvalidTaskDelay,
		},
		{
			name:    "missing auth reference",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.Auth = "" }) },
			wantErr: ErrMissingAuth,
		},
		{
			name:    "dangling auth reference",
			mutate:  func(cf *File) { mutateCrawler(cf, func(c *CrawlerConfig) { c.Auth = "nonexistent" }) },
			wantErr: ErrUnknownAuth,
		},
		{
			name: "unknown auth type",
			mutate: func(cf *File) {
				cf.Auth["login"] = AuthConfig{Type: "kerberos"}
			},
			wantErr: ErrUnknownAuthType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cf := validFile()
			cf.ApplyDefaults()
			tt.mutate(cf)

			if err := cf.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("bad redownload value", func(t *testing.T) {
		t.Parallel()

		cf := validFile()
		cf.ApplyDefaults()
		mutateCrawler(cf, func(c *CrawlerConfig) { c.Redownload = "sometimes" })
		if err := cf.Validate(); err == nil {
			t.Error("expected an error for unknown redownload value")
		}
	})

	t.Run("bad transform expression", func(t *testing.T) {
		t.Parallel()

		cf := validFile()
		cf.ApplyDefaults()
		mutateCrawler(cf, func(c *CrawlerConfig) { c.Transform = "*.tmp --> renamed" })
		if err := cf.Validate(); err == nil {
			t.Error("expected an error for a malformed transform rule")
		}
	})
}

// mutateCrawler applies f to the single crawler section of cf.
func mutateCrawler(cf *File, f func(*CrawlerConfig)) {
	for name, c := range cf.Crawlers {
		f(&c)
		cf.Crawlers[name] = c
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "spiegel.yaml")
		content := `
auth:
  my-login:
    type: simple
    username: alice
    password: hunter2
crawlers:
  my-course:
    type: local
    target: /srv/remote
    redownload: always-smart
    on_conflict: skip
    transform: |
      foo/bar --> baz
      *.tmp --> !
    max_concurrent_tasks: 2
    delay_between_tasks: 0.25
    auth: my-login
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c, ok := cf.Crawlers["my-course"]
		if !ok {
			t.Fatal("crawler section missing")
		}
		if c.Type != "local" || c.Target != "/srv/remote" {
			t.Errorf("unexpected crawler section: %+v", c)
		}
		if c.OutputDir != "my-course" {
			t.Errorf("expected defaulted output_dir, got %q", c.OutputDir)
		}
		if c.MaxConcurrentDownloads != 2 {
			t.Errorf("expected defaulted download limit 2, got %d", c.MaxConcurrentDownloads)
		}
		if c.TaskDelay() != 250*time.Millisecond {
			t.Errorf("expected 250ms delay, got %v", c.TaskDelay())
		}
		if a := cf.Auth["my-login"]; a.Username != "alice" || a.Password != "hunter2" {
			t.Errorf("unexpected auth section: %+v", a)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid file is rejected at load time", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "spiegel.yaml")
		content := `
crawlers:
  broken:
    type: local
    auth: missing
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(path); !errors.Is(err, ErrUnknownAuth) {
			t.Errorf("expected ErrUnknownAuth, got %v", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("expected empty result, got %q", got)
		}
	})
}
