package resource

import (
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/go-gl/mathgl/mgl32"
)

// interpolation is an in-flight linear move of one entity slot.
type interpolation struct {
	startX, startY   float32
	targetX, targetY float32
	startTime        time.Time
}

// progress returns the clamped fraction of d elapsed at now.
func (s *interpolation) progress(now time.Time, d time.Duration) float32 {
	return mgl32.Clamp(float32(now.Sub(s.startTime))/float32(d), 0, 1)
}

// at returns the position at progress p.
func (s *interpolation) at(p float32) (float32, float32) {
	return common.Lerp(s.startX, s.targetX, p), common.Lerp(s.startY, s.targetY, p)
}
