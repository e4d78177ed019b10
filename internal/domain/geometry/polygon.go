package geometry

import (
	"math"
	"sort"
)

// Number of segments used when approximating circles as polygons.
const circleSegments = 16

// SignedArea returns the shoelace area of the polygon. With the image
// coordinate convention (y axis pointing down) a negative value means the
// vertices run counter-clockwise as seen on screen.
func SignedArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return sum / 2
}

// EnsureCounterClockwise returns the polygon with counter-clockwise
// winding in image coordinates (y down). The input slice is not modified.
func EnsureCounterClockwise(poly []Point) []Point {
	out := make([]Point, len(poly))
	copy(out, poly)
	if SignedArea(out) > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// ConvexHull returns the convex hull of pts using Andrew's monotone chain.
// The hull is returned with counter-clockwise winding in image coordinates
// and without the closing vertex repeated. Fewer than three distinct input
// points yield the points themselves, sorted.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		out := make([]Point, len(pts))
		copy(out, pts)
		sort.Slice(out, func(i, j int) bool {
			if out[i].X != out[j].X {
				return out[i].X < out[j].X
			}
			return out[i].Y < out[j].Y
		})
		return out
	}

	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return EnsureCounterClockwise(hull)
}

// ClipToConvexHull returns p unchanged when it lies inside the hull,
// otherwise the closest point on the hull boundary. Hulls with fewer than
// three vertices cannot contain anything and return p unchanged.
func ClipToConvexHull(p Point, hull []Point) Point {
	if len(hull) < 3 || PointInPolygon(p, hull) {
		return p
	}
	best := p
	bestDist := math.Inf(1)
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		c := closestPointOnSegment(p, a, b)
		if d := Distance(p, c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func closestPointOnSegment(p, a, b Point) Point {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return a
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return Point{X: a.X + t*dx, Y: a.Y + t*dy}
}

// PolylineBuffer returns a constant-width buffer polygon around an open
// polyline: one pass along the line offset to the left, one pass back
// offset to the right. Interior vertices use miter joints (the averaged
// direction of the two adjacent segments). The result winds
// counter-clockwise in image coordinates. Polylines with fewer than two
// vertices have no extent and yield nil.
func PolylineBuffer(line []Point, width float64) []Point {
	if len(line) < 2 || width <= 0 {
		return nil
	}

	direction := func(i int) (dx, dy float64) {
		switch {
		case i == 0:
			dx = line[1].X - line[0].X
			dy = line[1].Y - line[0].Y
		case i == len(line)-1:
			dx = line[i].X - line[i-1].X
			dy = line[i].Y - line[i-1].Y
		default:
			dx = (line[i+1].X - line[i-1].X) / 2
			dy = (line[i+1].Y - line[i-1].Y) / 2
		}
		return dx, dy
	}

	buffer := make([]Point, 0, 2*len(line))
	for i, p := range line {
		dx, dy := direction(i)
		length := math.Sqrt(dx*dx + dy*dy)
		if length == 0 {
			continue
		}
		buffer = append(buffer, Point{
			X: p.X - dy/length*width,
			Y: p.Y + dx/length*width,
		})
	}
	for i := len(line) - 1; i >= 0; i-- {
		dx, dy := direction(i)
		length := math.Sqrt(dx*dx + dy*dy)
		if length == 0 {
			continue
		}
		buffer = append(buffer, Point{
			X: line[i].X + dy/length*width,
			Y: line[i].Y - dx/length*width,
		})
	}
	if len(buffer) < 3 {
		return nil
	}
	return EnsureCounterClockwise(buffer)
}

// CirclePolygon approximates a circle as a regular polygon. The vertex
// count is fixed so identical inputs always produce identical polygons.
func CirclePolygon(center Point, radius float64) []Point {
	pts := make([]Point, 0, circleSegments)
	for i := 0; i < circleSegments; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	return EnsureCounterClockwise(pts)
}
