// Package inference is an HTTP client for an external object detection and
// pose estimation server.
//
// The server exposes two endpoints, both taking {"image": "<base64 jpeg>"}:
//
//	POST /detect  -> Detections
//	POST /pose    -> PoseResult
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BBox is a detection box in pixel coordinates.
type BBox struct {
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Detection is one detected object.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Detections is the detector output for one image.
type Detections struct {
	Players      []Detection `json:"players"`
	Ball         *Detection  `json:"ball"`
	OtherObjects []Detection `json:"other_objects"`
	Summary      string      `json:"summary"`
}

// Keypoint is a normalized body landmark; y grows downward.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose is one person's landmarks keyed by name (LEFT_ANKLE, RIGHT_KNEE, ...).
type Pose struct {
	Keypoints map[string]Keypoint `json:"keypoints"`
}

// PoseResult is the pose estimator output for one image.
type PoseResult struct {
	Poses []Pose `json:"poses"`
}

// Config for creating a new inference client.
type Config struct {
	BaseURL string
	Timeout time.Duration // Optional, defaults to 5 seconds
	// MinConfidence is forwarded to the detector. Optional, defaults to 0.25.
	MinConfidence float64
}

// HTTPClient calls the inference server.
type HTTPClient struct {
	baseURL       string
	minConfidence float64
	httpClient    *http.Client
}

// NewClient creates a new inference client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.25
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		minConfidence: cfg.MinConfidence,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

type imageRequest struct {
	Image      string  `json:"image"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Detect runs object detection on a JPEG image.
func (c *HTTPClient) Detect(ctx context.Context, jpeg []byte) (*Detections, error) {
	var out Detections
	req := imageRequest{
		Image:      base64.StdEncoding.EncodeToString(jpeg),
		Confidence: c.minConfidence,
	}
	if err := c.post(ctx, "/detect", req, &out); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return &out, nil
}

// EstimatePose runs pose estimation on a JPEG image.
func (c *HTTPClient) EstimatePose(ctx context.Context, jpeg []byte) (*PoseResult, error) {
	var out PoseResult
	req := imageRequest{Image: base64.StdEncoding.EncodeToString(jpeg)}
	if err := c.post(ctx, "/pose", req, &out); err != nil {
		return nil, fmt.Errorf("estimate pose: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
