package cloudvision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/yanqian/rihla/internal/domain/generation"
)

const (
	landmarkFeature    = "LANDMARK_DETECTION"
	defaultMinScore    = 0.5
	maxLandmarkResults = 5
)

// Options configures the detector.
type Options struct {
	APIKey   string
	Endpoint string
	MinScore float64
}

// Detector runs Cloud Vision landmark detection.
type Detector struct {
	svc      *vision.Service
	minScore float64
}

// NewDetector builds a detector backed by the Vision REST API.
func NewDetector(ctx context.Context, opts Options) (*Detector, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("cloud vision api key cannot be empty")
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &Detector{svc: svc, minScore: minScore}, nil
}

// DetectLandmark returns the best scoring landmark above the minimum score.
func (d *Detector) DetectLandmark(ctx context.Context, image []byte) (generation.Landmark, bool, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: landmarkFeature, MaxResults: maxLandmarkResults}},
		}},
	}
	resp, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return generation.Landmark{}, false, fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return generation.Landmark{}, false, nil
	}
	result := resp.Responses[0]
	if result.Error != nil && result.Error.Code != 0 {
		return generation.Landmark{}, false, fmt.Errorf("annotate image: %s", result.Error.Message)
	}

	var best *vision.EntityAnnotation
	for _, annotation := range result.LandmarkAnnotations {
		if annotation == nil || annotation.Description == "" || annotation.Score <= d.minScore {
			continue
		}
		if best == nil || annotation.Score > best.Score {
			best = annotation
		}
	}
	if best == nil {
		return generation.Landmark{}, false, nil
	}
	return generation.Landmark{Name: best.Description, Score: best.Score}, true, nil
}

var _ generation.LandmarkDetector = (*Detector)(nil)
