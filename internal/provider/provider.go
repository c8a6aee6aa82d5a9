package provider

import "context"

// Landmark names shared by every detector
const (
	LandmarkNose       = "nose"
	LandmarkLeftEye    = "left_eye"
	LandmarkRightEye   = "right_eye"
	LandmarkMouthLeft  = "mouth_left"
	LandmarkMouthRight = "mouth_right"
)

// FaceDetector is the descriptor source: given one encoded frame it returns the
// most prominent face with its landmarks and, when the backend supports it, an embedding.
type FaceDetector interface {
	// Detect returns (nil, nil) when the frame contains no face
	Detect(ctx context.Context, image []byte) (*Detection, error)
}

// Point is a landmark position in image pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Detection is one detected face
type Detection struct {
	BoundingBox BoundingBox      `json:"bounding_box"`
	Confidence  float64          `json:"confidence"`
	Landmarks   map[string]Point `json:"landmarks"`
	Embedding   []float64        `json:"-"`
	// FaceCount is how many faces the frame contained; Detection is the largest one
	FaceCount int `json:"face_count"`
}

// Landmark looks up a named landmark
func (d *Detection) Landmark(name string) (Point, bool) {
	if d == nil || d.Landmarks == nil {
		return Point{}, false
	}
	p, ok := d.Landmarks[name]
	return p, ok
}

// HasEmbedding reports whether the detector produced a descriptor
func (d *Detection) HasEmbedding() bool {
	return d != nil && len(d.Embedding) > 0
}

// Largest returns the detection with the biggest bounding box, stamping FaceCount.
// It returns nil for an empty slice.
func Largest(faces []Detection) *Detection {
	if len(faces) == 0 {
		return nil
	}

	best := 0
	for i := range faces {
		if faces[i].BoundingBox.Area() > faces[best].BoundingBox.Area() {
			best = i
		}
	}

	d := faces[best]
	d.FaceCount = len(faces)
	return &d
}
