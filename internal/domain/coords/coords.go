// Package coords converts estimator-space coordinates into render space.
//
// The horizontal axis is mirrored so that on-screen motion matches the
// user's own left and right, like looking into a mirror.
package coords

import "github.com/okian/motionplay/internal/domain/model"

// MapToRenderSpace maps p from an estimator frame of ew x eh into a render
// surface of rw x rh. Nil input, or a degenerate estimator size, maps to nil.
func MapToRenderSpace(p *model.Point, ew, eh, rw, rh float64) *model.Point {
	if p == nil || ew <= 0 || eh <= 0 {
		return nil
	}
	return &model.Point{
		X: rw - (p.X/ew)*rw,
		Y: (p.Y / eh) * rh,
	}
}

// MapY maps only the vertical component. Used for body-centre height.
func MapY(y *float64, eh, rh float64) *float64 {
	if y == nil || eh <= 0 {
		return nil
	}
	v := (*y / eh) * rh
	return &v
}

// MapBody maps every part of b into render space. Seq and At are kept.
func MapBody(b model.BodyPosition, ew, eh, rw, rh float64) model.BodyPosition {
	return model.BodyPosition{
		LeftWrist:   MapToRenderSpace(b.LeftWrist, ew, eh, rw, rh),
		RightWrist:  MapToRenderSpace(b.RightWrist, ew, eh, rw, rh),
		LeftElbow:   MapToRenderSpace(b.LeftElbow, ew, eh, rw, rh),
		RightElbow:  MapToRenderSpace(b.RightElbow, ew, eh, rw, rh),
		BodyCenterY: MapY(b.BodyCenterY, eh, rh),
		Seq:         b.Seq,
		At:          b.At,
	}
}
