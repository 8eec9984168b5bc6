// Package mirror replicates directly uploaded objects to secondary
// archive targets. Mirroring is strictly best-effort: a failed target
// is logged and reported as advisory status, never as a request error.
package mirror

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Target receives a copy of an uploaded object under its storage key.
type Target interface {
	Name() string
	Store(ctx context.Context, key string, data []byte) error
}

// Set fans an object out to every configured target.
type Set []Target

// LoadFromEnv instantiates targets declared in the MIRRORS env
// variable. Misconfigured targets are skipped, not fatal.
func LoadFromEnv(logger zerolog.Logger) Set {
	raw := os.Getenv("MIRRORS")
	if raw == "" {
		return nil
	}
	var set Set
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		var (
			target Target
			err    error
		)
		switch token {
		case "sftp":
			target, err = newSFTPTarget()
		case "ftps":
			target, err = newFTPSTarget()
		default:
			err = fmt.Errorf("unknown mirror target %q", token)
		}
		if err != nil {
			logger.Error().Err(err).Str("mirror", token).Msg("failed to init mirror target")
			continue
		}
		logger.Info().Str("mirror", target.Name()).Msg("initialized mirror target")
		set = append(set, target)
	}
	return set
}

// Store copies the object to every target. It returns an error when at
// least one target failed, after attempting all of them.
func (s Set) Store(ctx context.Context, logger zerolog.Logger, key string, data []byte) error {
	var failed int
	for _, target := range s {
		if err := target.Store(ctx, key, data); err != nil {
			failed++
			logger.Error().
				Err(err).
				Str("mirror", target.Name()).
				Str("key", key).
				Msg("mirror target failed to store object")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mirror targets failed", failed, len(s))
	}
	return nil
}
