package dailyai

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging sends human readable logs to w, at debug level when verbose is set
func SetupLogging(w io.Writer, verbose bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}
