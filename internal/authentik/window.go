package authentik

import (
	"math/bits"
	"time"
)

// Window is the trailing period summed by the events aggregation.
const Window = 24 * time.Hour

// WindowMillis is Window expressed in milliseconds (86,400,000).
const WindowMillis = int64(Window / time.Millisecond)

// WindowStart returns the inclusive lower bound of the window ending at nowMillis.
func WindowStart(nowMillis int64) int64 {
	return nowMillis - WindowMillis
}

// SumSince adds YCoord over every point with XCoord >= start. Points strictly
// before start are skipped. visit, when non-nil, is called for each included point.
// ok is false when the sum overflows uint64.
func SumSince(points []EventPoint, start int64, visit func(EventPoint)) (sum uint64, ok bool) {
	lower := float64(start)
	for _, p := range points {
		if p.XCoord < lower {
			continue
		}
		if visit != nil {
			visit(p)
		}
		var carry uint64
		sum, carry = bits.Add64(sum, p.YCoord, 0)
		if carry != 0 {
			return 0, false
		}
	}
	return sum, true
}
