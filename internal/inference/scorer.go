// Package inference wraps the pretrained severity regressor behind a small
// capability interface so the upload path can be tested with a stub.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/lshigami/Pathoscore/config"
	"github.com/lshigami/Pathoscore/internal/imaging"
	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/rs/zerolog/log"
)

// Scores holds the four severity metrics in model output order.
type Scores struct {
	Architecture float64
	Atrophy      float64
	Complexes    float64
	Fibrosis     float64
}

// Scorer turns a decoded slide image into the four severity metrics.
type Scorer interface {
	Score(ctx context.Context, img image.Image) (Scores, error)
	// Ready reports whether the underlying model can be invoked at all.
	Ready() bool
}

// RemoteScorer invokes a model server over HTTP. The server receives the
// 512x512 PNG rendition and must answer with exactly four floats in [0,1],
// one per metric, in fixed order.
type RemoteScorer struct {
	url    string
	client *http.Client
}

// NewRemoteScorer stays constructible without MODEL_URL so the rest of the
// application can come up; scoring requests then fail until configured.
func NewRemoteScorer(cfg *config.Config) Scorer {
	if cfg.ModelURL == "" {
		log.Warn().Msg("MODEL_URL is not set. Scoring will be unavailable.")
		return &RemoteScorer{}
	}
	return &RemoteScorer{
		url:    cfg.ModelURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *RemoteScorer) Ready() bool {
	return s.url != ""
}

func (s *RemoteScorer) Score(ctx context.Context, img image.Image) (Scores, error) {
	if s.url == "" {
		return Scores{}, fmt.Errorf("model server not configured")
	}

	payload, err := imaging.EncodePNG(imaging.ModelInput(img))
	if err != nil {
		return Scores{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return Scores{}, fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := s.client.Do(req)
	if err != nil {
		return Scores{}, fmt.Errorf("call model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Scores{}, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw []float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Scores{}, fmt.Errorf("decode model response: %w", err)
	}
	if len(raw) != len(model.MetricOrder) {
		return Scores{}, fmt.Errorf("model returned %d values, expected %d", len(raw), len(model.MetricOrder))
	}

	var vec [4]float64
	copy(vec[:], raw)
	return Postprocess(vec), nil
}

// Postprocess scales the normalized model output back to the clinical score
// ranges, clamps each value into [0, max] and rounds to two decimals.
func Postprocess(raw [4]float64) Scores {
	for i := range raw {
		v := raw[i] * model.MaxScores[i]
		if v < 0 {
			v = 0
		}
		if v > model.MaxScores[i] {
			v = model.MaxScores[i]
		}
		raw[i] = model.Round2(v)
	}
	return Scores{
		Architecture: raw[0],
		Atrophy:      raw[1],
		Complexes:    raw[2],
		Fibrosis:     raw[3],
	}
}
