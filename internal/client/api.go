// Package client is the workstation-side half of the scoring workflow: an
// HTTP client for the server API, a sequential upload queue and a score edit
// synchronizer. The slidectl CLI drives it; tests drive it directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ScoreRecord is the client's copy of a persisted record. It can diverge
// from the server copy between a local edit and its confirmed save.
type ScoreRecord struct {
	Status       string             `json:"status"`
	DBID         uint               `json:"db_id"`
	Filename     string             `json:"filename"`
	SerialNumber string             `json:"serial_number"`
	SampleID     string             `json:"sample_id"`
	Scores       map[string]float64 `json:"scores"`
	DisplayURL   string             `json:"display_url"`
}

// API talks to the scoring server.
type API struct {
	baseURL string
	client  *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Upload posts one slide image. The server upserts by filename, so the
// response may be a previously stored record rather than a fresh inference.
func (a *API) Upload(ctx context.Context, name string, r io.Reader) (*ScoreRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/images", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("upload "+name, resp)
	}
	var record ScoreRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &record, nil
}

// UpdateScores sends a partial update carrying only the changed metrics.
func (a *API) UpdateScores(ctx context.Context, dbID uint, updates map[string]float64) error {
	payload, err := json.Marshal(updates)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/scores/%d", a.baseURL, dbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("save scores for record %d: %w", dbID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(fmt.Sprintf("save scores for record %d", dbID), resp)
	}
	return nil
}

// ListScores fetches the stored history.
func (a *API) ListScores(ctx context.Context) ([]ScoreRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/scores", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list scores", resp)
	}
	var records []ScoreRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode score list: %w", err)
	}
	return records, nil
}

// ExportCSV fetches the full history dump.
func (a *API) ExportCSV(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/scores/export", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("export", resp)
	}
	return io.ReadAll(resp.Body)
}

func apiError(op string, resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return fmt.Errorf("%s: server returned %d: %s", op, resp.StatusCode, payload.Message)
	}
	return fmt.Errorf("%s: server returned %d", op, resp.StatusCode)
}
