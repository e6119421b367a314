package remote

import "github.com/okian/motionplay/internal/domain/model"

// Request is one estimate request. Image holds a JPEG-encoded frame.
type Request struct {
	Seq    uint64 `msgpack:"seq"`
	Width  int    `msgpack:"width"`
	Height int    `msgpack:"height"`
	Image  []byte `msgpack:"image"`
}

// Response answers the Request with the same Seq. Found is false when no
// person was in the frame. Width and Height describe the estimator input the
// keypoints refer to.
type Response struct {
	Seq       uint64           `msgpack:"seq"`
	Found     bool             `msgpack:"found"`
	Keypoints []model.Keypoint `msgpack:"keypoints"`
	Score     float64          `msgpack:"score"`
	Width     float64          `msgpack:"width"`
	Height    float64          `msgpack:"height"`
	Error     string           `msgpack:"error,omitempty"`
}
