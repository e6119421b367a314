package pose

import "github.com/okian/motionplay/internal/domain/model"

// DefaultConfidence is the keypoint score below which a part is reported absent.
const DefaultConfidence = 0.3

// Extract picks the tracked parts out of an estimate, in estimator space.
// Each part is either present or absent; the score is not carried forward.
// Body-centre height is the mean of the visible hips, falling back to the
// visible shoulders.
func Extract(p *model.Pose, threshold float64) model.BodyPosition {
	var b model.BodyPosition
	if p == nil {
		return b
	}

	parts := make(map[string]model.Point, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		if kp.Score >= threshold {
			parts[kp.Name] = model.Point{X: kp.X, Y: kp.Y}
		}
	}

	b.LeftWrist = lookup(parts, model.LeftWrist)
	b.RightWrist = lookup(parts, model.RightWrist)
	b.LeftElbow = lookup(parts, model.LeftElbow)
	b.RightElbow = lookup(parts, model.RightElbow)

	if y, ok := meanY(parts, model.LeftHip, model.RightHip); ok {
		b.BodyCenterY = &y
	} else if y, ok := meanY(parts, model.LeftShoulder, model.RightShoulder); ok {
		b.BodyCenterY = &y
	}
	return b
}

func lookup(parts map[string]model.Point, name string) *model.Point {
	if p, ok := parts[name]; ok {
		return &p
	}
	return nil
}

func meanY(parts map[string]model.Point, names ...string) (float64, bool) {
	var sum float64
	n := 0
	for _, name := range names {
		if p, ok := parts[name]; ok {
			sum += p.Y
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
