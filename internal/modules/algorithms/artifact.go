package algorithms

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// ArtifactWriter writes trained copies of descriptors with the best vector baked in.
type ArtifactWriter struct {
	registry *Registry
	root     string
	now      func() time.Time
	log      zerolog.Logger
}

// NewArtifactWriter creates a writer storing artifacts under root/<stem>/success.
func NewArtifactWriter(registry *Registry, root string, log zerolog.Logger) *ArtifactWriter {
	return &ArtifactWriter{
		registry: registry,
		root:     root,
		now:      time.Now,
		log:      log.With().Str("component", "artifact_writer").Logger(),
	}
}

// ArtifactName formats trained_<stem>_streak<N>_<YYYYMMDD_HHMMSS><ext>.
func ArtifactName(stem string, streak int, at time.Time, ext string) string {
	return fmt.Sprintf("trained_%s_streak%d_%s%s", stem, streak, at.Format("20060102_150405"), ext)
}

// Write stores the descriptor for algorithmID with params merged in and
// returns the artifact path.
func (w *ArtifactWriter) Write(algorithmID string, params domain.ParameterVector, streak int) (string, error) {
	d, ok := w.registry.Descriptor(algorithmID)
	if !ok {
		return "", fmt.Errorf("%w: unknown algorithm %s", domain.ErrConfig, algorithmID)
	}

	ext := ".yaml"
	if d.Path != "" {
		ext = filepath.Ext(d.Path)
	}

	trained := d
	trained.Parameters = MergeParams(d.Parameters, params)
	trained.Description = fmt.Sprintf("%s (trained: streak %d)", d.Description, streak)

	data, err := MarshalDescriptor(trained, ext)
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}

	dir := filepath.Join(w.root, algorithmID, "success")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	path := filepath.Join(dir, ArtifactName(algorithmID, streak, w.now(), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	w.log.Info().Str("algorithm", algorithmID).Int("streak", streak).Str("path", path).Msg("Wrote trained artifact")
	return path, nil
}
