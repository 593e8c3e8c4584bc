package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component returns the global logger tagged with cmp=name. fields are
// alternating keys and values added to every event.
func Component(name string, fields ...any) zerolog.Logger {
	c := log.With().Str("cmp", name)
	if len(fields) > 0 {
		c = c.Fields(fields)
	}
	return c.Logger()
}
