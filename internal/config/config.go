package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. It is constructed once
// at startup and passed explicitly into each component; there is no
// process-wide mutable configuration state.
type Config struct {
	// CalendarURL is the ICS subscription endpoint for the carpool feed.
	CalendarURL string `yaml:"calendar_url"`

	// CalendarFile is a local ICS file path. If set, it takes precedence
	// over CalendarURL (useful for exported calendars and tests).
	CalendarFile string `yaml:"calendar_file"`

	// Timezone is the IANA timezone all event times are normalized into
	// (e.g. "Europe/Amsterdam"). The AM/PM split and day bucketing use
	// this zone.
	Timezone string `yaml:"timezone"`

	// ValidAMLocations / ValidPMLocations are the ordered canonical
	// location sets for morning and afternoon departures. Order matters:
	// location resolution is first-substring-match-wins.
	ValidAMLocations []string `yaml:"valid_am_locations"`
	ValidPMLocations []string `yaml:"valid_pm_locations"`

	// UnknownAM / UnknownPM are the sentinels returned when a raw
	// location matches nothing in the applicable set.
	UnknownAM string `yaml:"unknown_am"`
	UnknownPM string `yaml:"unknown_pm"`

	// TripCost is the fixed cost of a single carpool trip, divided among
	// driver and passengers.
	TripCost float64 `yaml:"trip_cost"`

	// RetentionDays is the merge trust window: the feed is authoritative
	// for events newer than this many days, older ledger history is
	// carried forward untouched.
	RetentionDays int `yaml:"retention_days"`

	// HorizonDays bounds recurrence expansion into the future.
	HorizonDays int `yaml:"horizon_days"`

	// LedgerFile is the persisted ledger path.
	LedgerFile string `yaml:"ledger_file"`

	// ReportFile is where the HTML balance report is written.
	ReportFile string `yaml:"report_file"`

	// CacheDir is the base directory for the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir"`

	// RefreshCron is a cron-style schedule (e.g. "0 */6 * * *") for the
	// resident mode. Empty means single-shot only.
	RefreshCron string `yaml:"refresh"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:         "Europe/Amsterdam",
		ValidAMLocations: []string{"everdingen", "nieuwegein", "houten"},
		ValidPMLocations: []string{"b7", "uithof"},
		UnknownAM:        "UNKNOWN-EVERDINGEN",
		UnknownPM:        "UNKNOWN-B7",
		TripCost:         16,
		RetentionDays:    30,
		HorizonDays:      90,
		LedgerFile:       "./var/ledger.json",
		ReportFile:       "./var/report.html",
		CacheDir:         "./var/ics-cache",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.ValidAMLocations == nil {
		c.ValidAMLocations = d.ValidAMLocations
	}
	if c.ValidPMLocations == nil {
		c.ValidPMLocations = d.ValidPMLocations
	}
	if c.UnknownAM == "" {
		c.UnknownAM = d.UnknownAM
	}
	if c.UnknownPM == "" {
		c.UnknownPM = d.UnknownPM
	}
	if c.TripCost <= 0 {
		c.TripCost = d.TripCost
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.LedgerFile == "" {
		c.LedgerFile = d.LedgerFile
	}
	if c.ReportFile == "" {
		c.ReportFile = d.ReportFile
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write
//     a default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal into Config, normalize
//     defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path. The write is
// atomic (temp file + rename) and the final file has 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".carpoolcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
