package model

// Key identifies a remote configuration entry.
type Key string

const (
	PrimaryColor    Key = "primary_color"
	SecondaryColor  Key = "secondary_color"
	AccentColor     Key = "accent_color"
	BackgroundColor Key = "background_color"
	TextColor       Key = "text_color"

	FontFamily      Key = "font_family"
	HeadingFontSize Key = "heading_font_size"
	BodyFontSize    Key = "body_font_size"

	ContainerMaxWidth Key = "container_max_width"
	SectionPadding    Key = "section_padding"
	BorderRadius      Key = "border_radius"

	EnableAnimations   Key = "enable_animations"
	EnableDarkMode     Key = "enable_dark_mode"
	EnableMoodTheming  Key = "enable_mood_theming"
	EnableRealtimeSync Key = "enable_realtime_sync"

	HeroTitle    Key = "hero_title"
	HeroSubtitle Key = "hero_subtitle"
	CTAText      Key = "cta_text"

	LogoURL    Key = "logo_url"
	FaviconURL Key = "favicon_url"
	AppURL     Key = "app_url"
	DocsURL    Key = "docs_url"

	HeroVariant Key = "hero_variant"
	CTAVariant  Key = "cta_variant"

	MaintenanceMode    Key = "maintenance_mode"
	AnnouncementBanner Key = "announcement_banner"
	ShowBetaFeatures   Key = "show_beta_features"
	AppVersion         Key = "app_version"
	MaxFileUploadSize  Key = "max_file_upload_size"

	TrackUserInteractions    Key = "track_user_interactions"
	TrackPerformanceMetrics  Key = "track_performance_metrics"
	RealtimeAnalyticsEnabled Key = "realtime_analytics_enabled"
)

// Definition declares the kind and default of a key.
type Definition struct {
	Key     Key
	Kind    Kind
	Default string
}

// Schema is the static default table. Its order is the order keys are
// loaded and reported in.
var Schema = []Definition{
	{PrimaryColor, String, "#6366f1"},
	{SecondaryColor, String, "#8b5cf6"},
	{AccentColor, String, "#22c55e"},
	{BackgroundColor, String, "#ffffff"},
	{TextColor, String, "#111827"},

	{FontFamily, String, "Inter"},
	{HeadingFontSize, String, "3.5rem"},
	{BodyFontSize, String, "1rem"},

	{ContainerMaxWidth, String, "1200px"},
	{SectionPadding, String, "5rem"},
	{BorderRadius, String, "0.5rem"},

	{EnableAnimations, Bool, "true"},
	{EnableDarkMode, Bool, "true"},
	{EnableMoodTheming, Bool, "true"},
	{EnableRealtimeSync, Bool, "true"},

	{HeroTitle, String, "Thoughtful Software Experiments"},
	{HeroSubtitle, String, "Exploring human-centered tooling, mindful technology practices, and collaborative workflows."},
	{CTAText, String, "Connect with Us"},

	{LogoURL, String, "/assets/images/logo.svg"},
	{FaviconURL, String, "/assets/images/favicon.svg"},
	{AppURL, String, "https://app.vibestudio.online"},
	{DocsURL, String, "https://docs.lockard.llc"},

	{HeroVariant, String, "default"},
	{CTAVariant, String, "default"},

	{MaintenanceMode, Bool, "false"},
	{AnnouncementBanner, String, ""},
	{ShowBetaFeatures, Bool, "false"},
	{AppVersion, String, "1.0.0"},
	{MaxFileUploadSize, Bytes, "10MB"},

	{TrackUserInteractions, Bool, "true"},
	{TrackPerformanceMetrics, Bool, "true"},
	{RealtimeAnalyticsEnabled, Bool, "true"},
}

var definitions = func() map[Key]Definition {
	m := make(map[Key]Definition, len(Schema))
	for _, d := range Schema {
		m[d.Key] = d
	}
	return m
}()

// Lookup returns the definition of key.
func Lookup(key Key) (Definition, bool) {
	d, ok := definitions[key]
	return d, ok
}

// DefaultValue returns the parsed static default for key. Unknown keys
// yield an empty string value.
func DefaultValue(key Key) Value {
	d, ok := definitions[key]
	if !ok {
		return Value{kind: String}
	}
	return MustParse(d.Kind, d.Default)
}
