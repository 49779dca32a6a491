package internal

const (
	DefaultConfigPath   = "config.yml"
	ConfigPathEnvVar    = "PLEXADMIN_CONFIG"
	EnvPrefix           = "PLEXADMIN_"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "X-Request-Id"
	ErrInvalidRequest   = "invalid request"
	DefaultSeriesApp    = "sonarr"
	DefaultMovieApp     = "radarr"
	DefaultSeriesPath   = "/api/v3/series"
	DefaultMoviePath    = "/api/v3/movie"
	DefaultCalendarPath = "/api/v3/calendar"
	DefaultPingPath     = "/ping"
)

// EntityType selects which remote collection is targeted.
type EntityType string

const (
	EntityShows     EntityType = "shows"
	EntityMovies    EntityType = "movies"
	EntityDownloads EntityType = "downloads"
)

// Lists rendered on the dashboard, in page order.
var DashboardLists = []EntityType{EntityShows, EntityMovies}
