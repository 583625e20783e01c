// Package numbering issues human-readable appointment numbers of the form
// <PREFIX>-<yyMMdd>-<6 base32 chars>.
package numbering

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"govbook/models"
)

const (
	DefaultPrefix      = "APT"
	DefaultMaxAttempts = 5
	randomChars        = 6
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator builds candidate numbers and retries persistence on collision.
type Generator struct {
	prefix      string
	maxAttempts int
	now         func() time.Time
	random      io.Reader
	logger      *zap.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the clock used for the date segment.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRandom overrides the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// NewGenerator returns a Generator. Empty prefix and non-positive attempts fall back to defaults.
func NewGenerator(prefix string, maxAttempts int, logger *zap.Logger, opts ...Option) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		prefix:      strings.ToUpper(prefix),
		maxAttempts: maxAttempts,
		now:         time.Now,
		random:      rand.Reader,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh candidate number. Uniqueness is only guaranteed by Generate.
func (g *Generator) Next() (string, error) {
	buf := make([]byte, 4) // 32 bits -> 7 base32 chars, trimmed to 6
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	suffix := encoding.EncodeToString(buf)[:randomChars]
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().Format("060102"), suffix), nil
}

// Generate calls persist with fresh candidates until it succeeds or reports a non-collision error.
// persist must return models.ErrDuplicateNumber (wrapped or not) on a uniqueness violation.
func (g *Generator) Generate(persist func(number string) error) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		number, err := g.Next()
		if err != nil {
			return "", err
		}
		err = persist(number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, models.ErrDuplicateNumber) {
			return "", err
		}
		g.logger.Warn("Appointment number collision",
			zap.String("number", number),
			zap.Int("attempt", attempt))
	}
	return "", fmt.Errorf("%w after %d attempts", models.ErrGenerationExhausted, g.maxAttempts)
}
