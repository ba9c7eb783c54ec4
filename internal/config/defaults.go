package config

// Default configuration values.
const (
	// DefaultRangeHours is one week of report range.
	DefaultRangeHours = 168

	// DefaultQuerySize is the changes-per-page request size.
	DefaultQuerySize = 100

	// DefaultOutputDir is where rendered reports land.
	DefaultOutputDir = "/var/www/html/zing/stats/"

	// DefaultReportTitle heads every generated page.
	DefaultReportTitle = "Zing stats"

	// DefaultReportIssueLink is the defect tracker linked in the footer.
	DefaultReportIssueLink = "https://github.com/HewlettPackard/zing-stats/issues"

	// DefaultContactEmail is the report-owner address linked in the footer.
	DefaultContactEmail = "zing-stats@hpe.com"

	// DefaultSystemCapacityDailyCIHours assumes 21 executors running
	// around the clock.
	DefaultSystemCapacityDailyCIHours = 504

	// DefaultCIJobRecommendedMaxMinutes is the per-job duration target.
	DefaultCIJobRecommendedMaxMinutes = 15
)
