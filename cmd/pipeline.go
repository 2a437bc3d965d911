package cmd

import (
	"github.com/kozaktomas/face-consistency/internal/cluster"
	"github.com/kozaktomas/face-consistency/internal/config"
	"github.com/kozaktomas/face-consistency/internal/faceapi"
	"github.com/kozaktomas/face-consistency/internal/fetch"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"go.uber.org/zap"
)

// newCollaborators wires the HTTP adapters used by every command.
// A single face API client serves as detector, embedder and verifier backend.
func newCollaborators(cfg *config.Config, logger *zap.Logger) verification.Collaborators {
	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout(),
		MaxRetries:    cfg.Fetch.MaxRetries,
		RatePerSecond: cfg.Fetch.RatePerSecond,
		Logger:        logger.Named("fetch"),
	})
	client := faceapi.NewClient(cfg.FaceAPI.URL, cfg.FaceAPI.Model, cfg.Fetch.Timeout())
	logger.Info("using face API",
		zap.String("url", cfg.FaceAPI.URL),
		zap.String("model", client.Model()),
	)

	return verification.Collaborators{
		Fetcher:   fetcher,
		Detector:  client,
		Embedder:  client,
		Verifier:  faceapi.NewEmbeddingVerifier(client),
		Clusterer: cluster.NewDBSCAN(),
	}
}
