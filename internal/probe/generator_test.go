package probe

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateLandmarks(t *testing.T) {
	Convey("Given the synthetic landmark generator", t, func() {
		Convey("When generating a landmark set", func() {
			points := GenerateLandmarks(1024, 1024)

			Convey("Then it should produce a full mesh", func() {
				So(points, ShouldHaveLength, meshLandmarkCount)
			})

			Convey("And every point should lie inside the frame", func() {
				for _, p := range points {
					So(p.X, ShouldBeBetweenOrEqual, 0, 1024)
					So(p.Y, ShouldBeBetweenOrEqual, 0, 1024)
				}
			})

			Convey("And named anatomy should sit where the topology expects", func() {
				// Face box: 512x614.4 centered in the frame.
				So(points[idxChinTip].Y, ShouldBeGreaterThan, points[idxForeheadCenter].Y)
				So(points[idxLeftEyeOuter].X, ShouldBeLessThan, points[idxRightEyeOuter].X)
				So(points[idxLeftEyeOuter].Y, ShouldEqual, points[idxRightEyeOuter].Y)
				So(points[idxNoseTip].X, ShouldEqual, points[idxChinTip].X)
			})
		})

		Convey("When generating twice with the same dimensions", func() {
			first := GenerateLandmarks(1024, 1024)
			second := GenerateLandmarks(1024, 1024)

			Convey("Then the sets should be byte-for-byte identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the frame size changes", func() {
			big := GenerateLandmarks(2048, 2048)
			small := GenerateLandmarks(1024, 1024)

			Convey("Then coordinates should scale proportionally", func() {
				So(big[idxNoseTip].X, ShouldAlmostEqual, small[idxNoseTip].X*2, 1e-9)
				So(big[idxNoseTip].Y, ShouldAlmostEqual, small[idxNoseTip].Y*2, 1e-9)
			})
		})
	})
}
