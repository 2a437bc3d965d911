// Package faceapi talks to the face embedding server: face detection on full images
// and embedding of face crops.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-consistency/internal/facematch"
	"github.com/kozaktomas/face-consistency/internal/imaging"
	"github.com/kozaktomas/face-consistency/internal/verification"
)

const (
	defaultURL   = "http://localhost:8000"
	defaultModel = "buffalo_l" // model name for reference only
)

// Client detects and embeds faces using the face embedding server.
// It implements verification.FaceDetector and verification.FaceEmbedder.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a new face server client
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// embeddingResponse represents the response from the image embedding endpoint
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
// If withMIME is true, the part includes an explicit Content-Type header based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, withMIME bool) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	var part io.Writer
	var err error
	if withMIME {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
		h.Set("Content-Type", detectMIMEType(imageData))
		part, err = writer.CreatePart(h)
	} else {
		part, err = writer.CreateFormFile("file", "image.jpg")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}

// DetectFaces runs face detection on encoded image data
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData, true)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// DetectPrimaryFace returns the bounding box of the highest scoring face in img,
// clamped to the image bounds. Returns verification.ErrNoFaceDetected when the
// server finds no usable face.
func (c *Client) DetectPrimaryFace(ctx context.Context, img image.Image) (image.Rectangle, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return image.Rectangle{}, err
	}

	faceResp, err := c.DetectFaces(ctx, data)
	if err != nil {
		return image.Rectangle{}, err
	}

	dets := make([]facematch.Detection, len(faceResp.Faces))
	for i, f := range faceResp.Faces {
		dets[i] = facematch.Detection{BBox: f.BBox, Score: f.DetScore}
	}
	best := facematch.PrimaryDetection(dets)
	if best < 0 {
		return image.Rectangle{}, verification.ErrNoFaceDetected
	}

	box := facematch.BBoxToRect(dets[best].BBox, img.Bounds())
	if box.Empty() {
		return image.Rectangle{}, verification.ErrNoFaceDetected
	}
	return box, nil
}

// ComputeEmbedding computes the embedding for encoded image data
func (c *Client) ComputeEmbedding(ctx context.Context, imageData []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/image", imageData, false)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	return embResp.Embedding, nil
}

// Embed computes the embedding of a face crop
func (c *Client) Embed(ctx context.Context, crop *image.RGBA) ([]float32, error) {
	data, err := imaging.EncodeJPEG(crop)
	if err != nil {
		return nil, err
	}
	return c.ComputeEmbedding(ctx, data)
}

// Model returns the model name being used
func (c *Client) Model() string {
	return c.model
}
