package plotpage

// Theme represents a color theme for report pages.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ThemeConfig holds all theme-specific styling values.
type ThemeConfig struct {
	// Base colors.
	Background string
	Surface    string
	Border     string

	// Text colors.
	TextPrimary string
	TextMuted   string

	// Semantic colors.
	Success string
	Warning string
	Error   string

	// Chart-specific.
	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// ECharts theme name.
	EChartsTheme string
}

// ChartPalette holds the series colors used across the report charts.
type ChartPalette struct {
	Created string
	Merged  string
	Updated string

	CITime     string
	LongestJob string

	Success string
	Failure string

	// Reference line colors.
	Capacity       string
	RecommendedMax string
}

// GetThemeConfig returns the configuration for a given theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

// GetChartPalette returns the chart color palette for a given theme.
func GetChartPalette(theme Theme) ChartPalette {
	if theme == ThemeDark {
		return darkChartPalette
	}

	return lightChartPalette
}

var lightTheme = ThemeConfig{
	Background: "#fafaf9", // stone-50.
	Surface:    "#ffffff",
	Border:     "#e7e5e4", // stone-200.

	TextPrimary: "#1c1917", // stone-900.
	TextMuted:   "#78716c", // stone-500.

	Success: "#16a34a", // green-600.
	Warning: "#ca8a04", // yellow-600.
	Error:   "#dc2626", // red-600.

	ChartBackground: "transparent",
	ChartGrid:       "#e7e5e4", // stone-200.
	ChartAxis:       "#a8a29e", // stone-400.
	ChartText:       "#44403c", // stone-700.
	ChartTextMuted:  "#78716c", // stone-500.

	EChartsTheme: "",
}

var darkTheme = ThemeConfig{
	Background: "#0c0a09", // stone-950.
	Surface:    "#1c1917", // stone-900.
	Border:     "#44403c", // stone-700.

	TextPrimary: "#fafaf9", // stone-50.
	TextMuted:   "#a8a29e", // stone-400.

	Success: "#22c55e", // green-500.
	Warning: "#eab308", // yellow-500.
	Error:   "#ef4444", // red-500.

	ChartBackground: "transparent",
	ChartGrid:       "#44403c", // stone-700.
	ChartAxis:       "#57534e", // stone-600.
	ChartText:       "#d6d3d1", // stone-300.
	ChartTextMuted:  "#a8a29e", // stone-400.

	EChartsTheme: "",
}

var lightChartPalette = ChartPalette{
	Created: "#0369a1", // sky-700.
	Merged:  "#15803d", // green-700.
	Updated: "#a16207", // amber-700.

	CITime:     "#37536d", // slate blue.
	LongestJob: "#7c3aed", // violet-600.

	Success: "#16a34a", // green-600.
	Failure: "#dc2626", // red-600.

	Capacity:       "#e74c3c",
	RecommendedMax: "#e67e22",
}

var darkChartPalette = ChartPalette{
	Created: "#38bdf8", // sky-400.
	Merged:  "#4ade80", // green-400.
	Updated: "#fbbf24", // amber-400.

	CITime:     "#818cf8", // indigo-400.
	LongestJob: "#a78bfa", // violet-400.

	Success: "#22c55e", // green-500.
	Failure: "#ef4444", // red-500.

	Capacity:       "#ef4444",
	RecommendedMax: "#fb923c",
}
