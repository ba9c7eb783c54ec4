// Package config loads and validates zing-stats configuration from file,
// environment, and defaults.
package config

import "errors"

// Config is the top-level configuration struct for zing-stats.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Gerrit GerritConfig `mapstructure:"gerrit"`
	GitHub GitHubConfig `mapstructure:"github"`
	Gather GatherConfig `mapstructure:"gather"`
	Report ReportConfig `mapstructure:"report"`
	Output OutputConfig `mapstructure:"output"`
}

// GerritConfig holds the Gerrit backend connection settings.
type GerritConfig struct {
	URL   string `mapstructure:"url"`
	User  string `mapstructure:"user"`
	Token string `mapstructure:"token"`
}

// GitHubConfig holds the GitHub Enterprise backend connection settings.
type GitHubConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// GatherConfig holds the ingestion knobs shared by both backends.
type GatherConfig struct {
	RangeHours         int      `mapstructure:"range_hours"`
	QuerySize          int      `mapstructure:"query_size"`
	MaxChanges         int      `mapstructure:"max_changes"`
	Branches           []string `mapstructure:"branches"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
}

// ReportConfig holds report presentation settings.
type ReportConfig struct {
	Title        string `mapstructure:"title"`
	IssueLink    string `mapstructure:"issue_link"`
	ContactEmail string `mapstructure:"contact_email"`
	Format       string `mapstructure:"format"`

	// SystemCapacityDailyCIHours is the CI capacity in total job hours
	// available per day, drawn as a reference line on the capacity chart.
	SystemCapacityDailyCIHours int `mapstructure:"system_capacity_daily_ci_hours"`

	// CIJobRecommendedMaxMinutes is the recommended per-job duration cap,
	// drawn as a reference line on the longest-job chart.
	CIJobRecommendedMaxMinutes int `mapstructure:"ci_job_recommended_max_minutes"`
}

// OutputConfig holds filesystem output destinations.
type OutputConfig struct {
	Dir             string `mapstructure:"dir"`
	SnapshotDir     string `mapstructure:"snapshot_dir"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

// Report output formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidRangeHours indicates the report range is not positive.
	ErrInvalidRangeHours = errors.New("gather.range_hours must be positive")
	// ErrInvalidQuerySize indicates the page size is not positive.
	ErrInvalidQuerySize = errors.New("gather.query_size must be positive")
	// ErrInvalidMaxChanges indicates the change cap is negative.
	ErrInvalidMaxChanges = errors.New("gather.max_changes must be non-negative")
	// ErrInvalidFormat indicates an unsupported report format.
	ErrInvalidFormat = errors.New("report.format must be html, json, or yaml")
	// ErrInvalidCapacity indicates the CI capacity is not positive.
	ErrInvalidCapacity = errors.New("report.system_capacity_daily_ci_hours must be positive")
	// ErrInvalidJobMax indicates the recommended job maximum is not positive.
	ErrInvalidJobMax = errors.New("report.ci_job_recommended_max_minutes must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Gather.RangeHours <= 0 {
		return ErrInvalidRangeHours
	}

	if c.Gather.QuerySize <= 0 {
		return ErrInvalidQuerySize
	}

	if c.Gather.MaxChanges < 0 {
		return ErrInvalidMaxChanges
	}

	switch c.Report.Format {
	case FormatHTML, FormatJSON, FormatYAML:
	default:
		return ErrInvalidFormat
	}

	if c.Report.SystemCapacityDailyCIHours <= 0 {
		return ErrInvalidCapacity
	}

	if c.Report.CIJobRecommendedMaxMinutes <= 0 {
		return ErrInvalidJobMax
	}

	return nil
}
