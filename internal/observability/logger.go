package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the global logger tagged with app. Call after logging is
// configured so the console and file sinks are already in place.
func Logger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
