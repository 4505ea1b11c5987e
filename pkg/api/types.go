package api

import "time"

// HealthStatus is the backend health report.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime_seconds"`
	Database  string    `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
}

// Site is a configured listing source the scraper crawls.
type Site struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Region      string    `json:"region"`
	Enabled     bool      `json:"enabled"`
	Selector    string    `json:"selector,omitempty"`
	RateLimit   float64   `json:"rate_limit,omitempty"`
	LastScraped time.Time `json:"last_scraped,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SiteInput is the payload for creating or updating a site.
type SiteInput struct {
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Region    string  `json:"region,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
	Selector  string  `json:"selector,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty"`
}

// SiteTestResult reports a dry-run fetch of a site's listing page.
type SiteTestResult struct {
	OK         bool    `json:"ok"`
	StatusCode int     `json:"status_code"`
	Listings   int     `json:"listings_found"`
	Duration   float64 `json:"duration_seconds"`
	Error      string  `json:"error,omitempty"`
}

// ScrapeJob describes one scraping run.
type ScrapeJob struct {
	ID          string     `json:"id"`
	SiteIDs     []int64    `json:"site_ids,omitempty"`
	State       string     `json:"state"`
	Progress    float64    `json:"progress"`
	Found       int        `json:"properties_found"`
	New         int        `json:"properties_new"`
	Updated     int        `json:"properties_updated"`
	Errors      int        `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ScrapeRequest selects which sites to scrape. Empty SiteIDs means all
// enabled sites.
type ScrapeRequest struct {
	SiteIDs []int64 `json:"site_ids,omitempty"`
	Force   bool    `json:"force,omitempty"`
}

// Property is one scraped real-estate listing.
type Property struct {
	ID          int64      `json:"id"`
	SiteID      int64      `json:"site_id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	ZipCode     string     `json:"zip_code"`
	Price       float64    `json:"price"`
	PricePerSqm float64    `json:"price_per_sqm,omitempty"`
	Rooms       float64    `json:"rooms,omitempty"`
	LivingArea  float64    `json:"living_area,omitempty"`
	PlotArea    float64    `json:"plot_area,omitempty"`
	Type        string     `json:"property_type,omitempty"`
	ListingURL  string     `json:"listing_url"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
	RemovedAt   *time.Time `json:"removed_at,omitempty"`
}

// PropertyQuery holds the filters for the property data endpoint. Zero
// values are omitted from the request.
type PropertyQuery struct {
	SiteID   int64
	City     string
	ZipCode  string
	Type     string
	MinPrice float64
	MaxPrice float64
	MinRooms float64
	Search   string
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// PropertyPage is the paginated envelope of a property query.
type PropertyPage struct {
	Items      []Property `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalItems int        `json:"total_items"`
	TotalPages int        `json:"total_pages"`
}

// StatsOverview aggregates backend-wide counters for the dashboard header.
type StatsOverview struct {
	TotalProperties  int       `json:"total_properties"`
	ActiveProperties int       `json:"active_properties"`
	NewToday         int       `json:"new_today"`
	NewThisWeek      int       `json:"new_this_week"`
	RemovedThisWeek  int       `json:"removed_this_week"`
	AveragePrice     float64   `json:"average_price"`
	MedianPrice      float64   `json:"median_price"`
	SitesConfigured  int       `json:"sites_configured"`
	SitesEnabled     int       `json:"sites_enabled"`
	LastScrapeAt     time.Time `json:"last_scrape_at"`
}

// TrendPoint is one bucket of the price/volume trend series.
type TrendPoint struct {
	Date         string  `json:"date"`
	Listings     int     `json:"listings"`
	NewListings  int     `json:"new_listings"`
	AveragePrice float64 `json:"average_price"`
	MedianPrice  float64 `json:"median_price"`
}

// SiteStats breaks counters down per configured site.
type SiteStats struct {
	SiteID       int64     `json:"site_id"`
	SiteName     string    `json:"site_name"`
	Properties   int       `json:"properties"`
	NewToday     int       `json:"new_today"`
	AveragePrice float64   `json:"average_price"`
	LastScraped  time.Time `json:"last_scraped"`
	LastError    string    `json:"last_error,omitempty"`
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	SiteName  string    `json:"site_name,omitempty"`
	Message   string    `json:"message"`
}

// LogEntry is one backend log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
}

// LogQuery filters the log endpoint.
type LogQuery struct {
	Level string
	Since time.Time
	Limit int
}

// SavedSearch is a stored property filter that can be re-run and used for
// email alerts.
type SavedSearch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	Type      string    `json:"property_type,omitempty"`
	MaxPrice  float64   `json:"max_price,omitempty"`
	MinRooms  float64   `json:"min_rooms,omitempty"`
	NotifyVia string    `json:"notify_via,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SavedSearchInput is the payload for creating or updating a saved search.
type SavedSearchInput struct {
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Type      string  `json:"property_type,omitempty"`
	MaxPrice  float64 `json:"max_price,omitempty"`
	MinRooms  float64 `json:"min_rooms,omitempty"`
	NotifyVia string  `json:"notify_via,omitempty"`
}

// Schedule is a recurring scrape trigger.
type Schedule struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Cron      string     `json:"cron"`
	SiteIDs   []int64    `json:"site_ids,omitempty"`
	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// ScheduleInput is the payload for creating or updating a schedule.
type ScheduleInput struct {
	Name    string  `json:"name"`
	Cron    string  `json:"cron"`
	SiteIDs []int64 `json:"site_ids,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// EmailConfig holds the alert mail settings.
type EmailConfig struct {
	Enabled    bool     `json:"enabled"`
	SMTPHost   string   `json:"smtp_host"`
	SMTPPort   int      `json:"smtp_port"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
	DigestHour int      `json:"digest_hour"`
}

// Export is the result of a non-JSON download endpoint.
type Export struct {
	ContentType string
	Filename    string
	Data        []byte
}
