package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studioforge/upload-gateway/internal/config"
	"github.com/studioforge/upload-gateway/internal/identity"
	"github.com/studioforge/upload-gateway/internal/mirror"
	"github.com/studioforge/upload-gateway/internal/policy"
	"github.com/studioforge/upload-gateway/internal/server"
	"github.com/studioforge/upload-gateway/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway exited")
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}
	log.Info().Str("backend", store.Name()).Msg("object store ready")

	var client *identity.Client
	if cfg.AuthAPIBaseURL != "" {
		client = identity.NewClient(cfg.AuthAPIBaseURL, log.Logger)
	}

	var verifier identity.Verifier
	switch cfg.AuthMode {
	case "legacy":
		log.Warn().Msg("legacy shared-secret auth mode enabled; prefer delegated verification")
		verifier = identity.NewLegacyVerifier(cfg.LegacyTokenRealm, cfg.LegacyTokenMaxAge())
	default:
		verifier = client
	}

	var notifier identity.Notifier
	if client != nil {
		notifier = client
	}

	screen := policy.NewScreen(policy.Options{
		Disabled:          cfg.ScreenDisabled,
		Monitor:           cfg.ScreenMode == "monitor",
		BlockedExtensions: config.SplitList(cfg.BlockedExtensions),
		MaxBytes:          cfg.MaxUploadBytes,
		Signatures:        config.SplitList(cfg.ScreenSignatures),
	})

	mirrors := mirror.LoadFromEnv(log.Logger)
	if len(mirrors) > 0 {
		log.Info().Int("count", len(mirrors)).Msg("archive mirrors enabled")
	}

	srv := server.New(server.Options{
		Verifier:       verifier,
		Notifier:       notifier,
		Store:          store,
		Screen:         screen,
		Mirrors:        mirrors,
		PresignExpiry:  cfg.PresignExpiry(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         log.Logger,
	})

	rawAddr := cfg.ListenAddr
	addr := sanitizeListenAddr(rawAddr)
	if addr != rawAddr {
		log.Warn().
			Str("raw", rawAddr).
			Str("sanitized", addr).
			Msg("sanitized LISTEN_ADDR; remove inline comments from address")
	}

	log.Info().Str("addr", addr).Msg("gateway HTTP listening")
	return http.ListenAndServe(addr, srv.Handler())
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			SessionToken:    cfg.AWSSessionToken,
			Endpoint:        cfg.S3Endpoint,
			ObjectACL:       cfg.S3ObjectACL,
		})
	case "azure":
		return storage.NewAzureStore(storage.AzureOptions{
			Account:   cfg.AzureAccount,
			Key:       cfg.AzureKey,
			Container: cfg.AzureContainer,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// sanitizeListenAddr trims whitespace/comments so malformed env values
// (e.g. ":8080 :: note") do not break net.Listen.
func sanitizeListenAddr(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return trimmed
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		trimmed = fields[0]
	}
	return strings.Trim(trimmed, "\"'")
}
