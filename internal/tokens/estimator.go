// Package tokens estimates LLM token counts for digest output.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// Estimator counts tokens with a tiktoken encoding, loaded lazily on first
// use. Estimation is best-effort: any failure reports ok=false and the
// caller omits the count.
type Estimator struct {
	encoding string
	logger   *utils.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator creates an Estimator for the named encoding (e.g. "o200k_base").
func NewEstimator(encoding string, logger *utils.Logger) *Estimator {
	return &Estimator{
		encoding: encoding,
		logger:   logger.WithComponent("tokens"),
	}
}

// Estimate returns the token count of text. ok is false when the encoding
// could not be loaded or encoding panicked on unusual input.
func (e *Estimator) Estimate(text string) (count int, ok bool) {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			e.logger.Warn().Err(err).Str("encoding", e.encoding).
				Msg("Token encoding unavailable, skipping estimates")
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Interface("panic", r).Msg("Token estimation failed")
			count, ok = 0, false
		}
	}()

	return len(e.enc.Encode(text, nil, nil)), true
}
