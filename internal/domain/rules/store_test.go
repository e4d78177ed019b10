package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/riskmap/internal/domain/landmark"
	"github.com/okian/riskmap/internal/domain/rules"
	"github.com/smartystreets/goconvey/convey"
)

const validRuleFile = `
area: lips
version: "2024.1"
volume_ceiling_ml: 1.0
max_points: 8
clamp_regions:
  mouth:
    - left_mouth_corner
    - right_mouth_corner
    - upper_lip_center
    - lower_lip_bottom
points:
  - id: lp-1
    label: Cupid's bow left
    code: LP1
    kind: anchor-offset
    anchors: [left_cupids_bow]
    offset: {x: 0.0, y: -0.015}
    depth: dermal
    technique: linear threading
    volume: 0.1-0.2 ml
  - id: lp-2
    label: Chin support
    code: LP2
    kind: bone-projected
    anchors: [lower_lip_bottom]
    bone_anchor: chin_tip
zones:
  - id: lz-1
    name: Labial artery corridor
    severity: critical
    kind: polyline-buffer
    anchors: [left_mouth_corner, upper_lip_center, right_mouth_corner]
    buffer_px: 12
`

func writeRuleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestStoreEmbeddedDefaults(t *testing.T) {
	convey.Convey("Given the embedded rule files", t, func() {
		topo := landmark.FaceMesh()
		store, err := rules.NewStore(topo)

		convey.Convey("Then they should load and validate", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(store, convey.ShouldNotBeNil)
		})

		convey.Convey("When listing areas", func() {
			areas := store.Areas()

			convey.Convey("Then all bundled areas should be present, sorted", func() {
				convey.So(areas, convey.ShouldResemble, []string{"cheeks", "chin", "forehead", "lips"})
			})
		})

		convey.Convey("When fetching an area", func() {
			convey.Convey("Then lookup should be case-insensitive and trim whitespace", func() {
				set, err := store.Get("  LiPs ")
				convey.So(err, convey.ShouldBeNil)
				convey.So(set.Area, convey.ShouldEqual, "lips")
				convey.So(set.Version, convey.ShouldNotBeEmpty)
				convey.So(len(set.Points), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("And unknown areas should fail with the sentinel", func() {
				_, err := store.Get("earlobes")
				convey.So(err, convey.ShouldWrap, rules.ErrUnknownArea)
			})
		})
	})
}

func TestStoreRulesDir(t *testing.T) {
	convey.Convey("Given rule files in a directory", t, func() {
		topo := landmark.FaceMesh()

		convey.Convey("When the directory holds a valid file", func() {
			dir := writeRuleDir(t, map[string]string{"lips.yaml": validRuleFile})
			store, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then only that area should be loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.Areas(), convey.ShouldResemble, []string{"lips"})
			})

			convey.Convey("And omitted optional fields should get defaults", func() {
				set, err := store.Get("lips")
				convey.So(err, convey.ShouldBeNil)
				convey.So(set.Points[1].BlendFactor, convey.ShouldEqual, 0.5)
				convey.So(set.Zones[0].Style.FillColor, convey.ShouldEqual, "#FF4D4D")
				convey.So(set.Zones[0].Style.Opacity, convey.ShouldEqual, 0.25)
				convey.So(set.Zones[0].Style.StrokeStyle, convey.ShouldEqual, "solid")
			})

			convey.Convey("And non-yaml files should be ignored", func() {
				mixed := writeRuleDir(t, map[string]string{
					"lips.yaml":  validRuleFile,
					"README.md":  "not a rule file",
					"notes.json": "{}",
				})
				store, err := rules.NewStore(topo, rules.WithRulesDir(mixed))
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.Areas(), convey.ShouldResemble, []string{"lips"})
			})
		})

		convey.Convey("When the directory is empty", func() {
			dir := writeRuleDir(t, nil)
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
			})
		})

		convey.Convey("When a file is not valid yaml", func() {
			dir := writeRuleDir(t, map[string]string{"bad.yaml": "area: [unclosed"})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail with a configuration error", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
			})
		})

		convey.Convey("When a rule references an unknown anchor", func() {
			bad := `
area: lips
version: "1"
points:
  - id: lp-1
    label: Bad anchor
    kind: anchor-offset
    anchors: [elbow]
`
			dir := writeRuleDir(t, map[string]string{"lips.yaml": bad})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail at startup", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
				convey.So(err.Error(), convey.ShouldContainSubstring, "elbow")
			})
		})

		convey.Convey("When a bone-projected rule has no bone anchor", func() {
			bad := `
area: lips
version: "1"
points:
  - id: lp-1
    label: No bone
    kind: bone-projected
    anchors: [lower_lip_bottom]
`
			dir := writeRuleDir(t, map[string]string{"lips.yaml": bad})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
			})
		})

		convey.Convey("When rule ids collide", func() {
			bad := `
area: lips
version: "1"
points:
  - id: lp-1
    label: First
    kind: anchor-offset
    anchors: [upper_lip_center]
  - id: lp-1
    label: Second
    kind: anchor-offset
    anchors: [lower_lip_center]
`
			dir := writeRuleDir(t, map[string]string{"lips.yaml": bad})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
				convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate")
			})
		})

		convey.Convey("When a polyline zone has a single anchor", func() {
			bad := `
area: lips
version: "1"
zones:
  - id: lz-1
    name: Too short
    severity: high
    kind: polyline-buffer
    anchors: [upper_lip_center]
    buffer_px: 10
`
			dir := writeRuleDir(t, map[string]string{"lips.yaml": bad})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
			})
		})

		convey.Convey("When a clamp region is too small to span a hull", func() {
			bad := `
area: lips
version: "1"
clamp_regions:
  tiny: [left_mouth_corner, right_mouth_corner]
points:
  - id: lp-1
    label: Clamped
    kind: anchor-offset
    anchors: [upper_lip_center]
    clamp_region: tiny
`
			dir := writeRuleDir(t, map[string]string{"lips.yaml": bad})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
			})
		})

		convey.Convey("When two files declare the same area", func() {
			dir := writeRuleDir(t, map[string]string{
				"lips.yaml":  validRuleFile,
				"lips2.yaml": validRuleFile,
			})
			_, err := rules.NewStore(topo, rules.WithRulesDir(dir))

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldWrap, rules.ErrConfiguration)
				convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate area")
			})
		})
	})
}
