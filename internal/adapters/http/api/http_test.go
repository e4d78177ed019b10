package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/riskmap/internal/adapters/http/api"
	"github.com/okian/riskmap/internal/adapters/imageproc"
	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
	"github.com/okian/riskmap/internal/domain/rules"
	"github.com/smartystreets/goconvey/convey"
)

// fakeDeps satisfies api.Dependencies with canned behavior.
type fakeDeps struct {
	lastRequest api.AnalyzeRequest
	result      model.AnalysisResult
	err         error
	areas       []string
}

func (f *fakeDeps) Analyze(_ context.Context, req api.AnalyzeRequest) (model.AnalysisResult, error) {
	f.lastRequest = req
	return f.result, f.err
}

func (f *fakeDeps) Areas(_ context.Context) []string { return f.areas }

// fakeProcessor satisfies api.ImageProcessor with a fixed scale.
type fakeProcessor struct {
	proc      api.Processed
	err       error
	processed bool
}

func (f *fakeProcessor) Process(_ context.Context, _ string) (api.Processed, error) {
	f.processed = true
	return f.proc, f.err
}

func (f *fakeProcessor) ScaleLandmarks(points []geometry.Point, proc api.Processed) []geometry.Point {
	if proc.Scale == 1 || proc.Scale == 0 {
		return points
	}
	scaled := make([]geometry.Point, len(points))
	for i, p := range points {
		scaled[i] = p.Scale(proc.Scale)
	}
	return scaled
}

func (f *fakeProcessor) RestoreResult(result model.AnalysisResult, proc api.Processed) model.AnalysisResult {
	result.ImageWidth = proc.OriginalWidth
	result.ImageHeight = proc.OriginalHeight
	return result
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps, processor *fakeProcessor) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}, processor).Register(context.Background(), mux)
	return mux
}

func postAnalyze(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	convey.Convey("Given the analyze endpoint", t, func() {
		deps := &fakeDeps{
			result: model.AnalysisResult{
				AnalysisID:  "a-1",
				Area:        "lips",
				ImageWidth:  1000,
				ImageHeight: 1000,
				Points: []model.InjectionPoint{
					{RuleID: "lp-1", Position: geometry.Point{X: 500, Y: 600}, Confidence: 0.9},
				},
				Confidence:  0.9,
				ContentHash: "deadbeefdeadbeef",
				RuleVersion: "2024.1",
			},
		}
		processor := &fakeProcessor{proc: api.Processed{Scale: 1}}
		mux := newTestMux(deps, processor)

		convey.Convey("When posting a well-formed landmark request", func() {
			w := postAnalyze(mux, `{
				"area": "lips",
				"image_width": 1000,
				"image_height": 1000,
				"landmarks": [{"x": 500, "y": 600}],
				"confidence": 0.9
			}`)

			convey.Convey("Then it should return the analysis result", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldStartWith, "application/json")

				var result model.AnalysisResult
				convey.So(json.Unmarshal(w.Body.Bytes(), &result), convey.ShouldBeNil)
				convey.So(result.AnalysisID, convey.ShouldEqual, "a-1")
				convey.So(result.Points, convey.ShouldHaveLength, 1)
			})

			convey.Convey("And the pipeline input mirrors the request", func() {
				convey.So(deps.lastRequest.Area, convey.ShouldEqual, "lips")
				convey.So(deps.lastRequest.Landmarks, convey.ShouldHaveLength, 1)
				convey.So(deps.lastRequest.Confidence, convey.ShouldEqual, 0.9)
			})

			convey.Convey("And the image processor stays untouched", func() {
				convey.So(processor.processed, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the body is not JSON", func() {
			w := postAnalyze(mux, "not json at all")
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "bad_request")
		})

		convey.Convey("When the area is missing", func() {
			w := postAnalyze(mux, `{"image_width": 100, "image_height": 100, "confidence": 0.5}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "missing area")
		})

		convey.Convey("When neither image nor dimensions are given", func() {
			w := postAnalyze(mux, `{"area": "lips", "confidence": 0.5}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "missing image or image dimensions")
		})

		convey.Convey("When the confidence is out of range", func() {
			w := postAnalyze(mux, `{"area": "lips", "image_width": 100, "image_height": 100, "confidence": 1.5}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "confidence")
		})

		convey.Convey("When the area is unknown", func() {
			deps.err = fmt.Errorf("area %q: %w", "earlobes", rules.ErrUnknownArea)
			w := postAnalyze(mux, `{"area": "earlobes", "image_width": 100, "image_height": 100, "confidence": 0.5}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "unknown_area")
		})

		convey.Convey("When the pipeline fails unexpectedly", func() {
			deps.err = errors.New("boom")
			w := postAnalyze(mux, `{"area": "lips", "image_width": 100, "image_height": 100, "confidence": 0.5}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusInternalServerError)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "internal")
		})

		convey.Convey("When using a method other than POST", func() {
			req := httptest.NewRequest(http.MethodGet, "/analyze", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAnalyzeWithImage(t *testing.T) {
	convey.Convey("Given an analyze request carrying an image", t, func() {
		deps := &fakeDeps{
			result: model.AnalysisResult{AnalysisID: "a-1", Area: "lips", ImageWidth: 512, ImageHeight: 384},
		}

		convey.Convey("When the image processes at half scale", func() {
			processor := &fakeProcessor{proc: api.Processed{
				Width: 512, Height: 384,
				OriginalWidth: 1024, OriginalHeight: 768,
				Scale: 0.5,
			}}
			mux := newTestMux(deps, processor)
			w := postAnalyze(mux, `{
				"area": "lips",
				"image": "aGVsbG8=",
				"landmarks": [{"x": 100, "y": 200}],
				"confidence": 0.9
			}`)

			convey.Convey("Then landmarks are scaled into processed space", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(processor.processed, convey.ShouldBeTrue)
				convey.So(deps.lastRequest.Landmarks[0], convey.ShouldResemble, geometry.Point{X: 50, Y: 100})
				convey.So(deps.lastRequest.ImageWidth, convey.ShouldEqual, 512)
				convey.So(deps.lastRequest.ImageHeight, convey.ShouldEqual, 384)
			})

			convey.Convey("And the response is restored to the original image space", func() {
				var result model.AnalysisResult
				convey.So(json.Unmarshal(w.Body.Bytes(), &result), convey.ShouldBeNil)
				convey.So(result.ImageWidth, convey.ShouldEqual, 1024)
				convey.So(result.ImageHeight, convey.ShouldEqual, 768)
			})
		})

		convey.Convey("When the payload is too large", func() {
			processor := &fakeProcessor{err: fmt.Errorf("12345 bytes encoded: %w", imageproc.ErrPayloadTooLarge)}
			mux := newTestMux(deps, processor)
			w := postAnalyze(mux, `{"area": "lips", "image": "aGVsbG8=", "confidence": 0.9}`)

			convey.So(w.Code, convey.ShouldEqual, http.StatusRequestEntityTooLarge)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "bad_image")
		})

		convey.Convey("When the image cannot be decoded", func() {
			processor := &fakeProcessor{err: imageproc.ErrDecodeFailed}
			mux := newTestMux(deps, processor)
			w := postAnalyze(mux, `{"area": "lips", "image": "aGVsbG8=", "confidence": 0.9}`)

			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "bad_image")
		})
	})
}

func TestAreasEndpoint(t *testing.T) {
	convey.Convey("Given the areas endpoint", t, func() {
		deps := &fakeDeps{areas: []string{"cheeks", "chin", "forehead", "lips"}}
		mux := newTestMux(deps, &fakeProcessor{})

		convey.Convey("When listing areas", func() {
			req := httptest.NewRequest(http.MethodGet, "/areas", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then all areas are returned", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var resp struct {
					Areas []string `json:"areas"`
				}
				convey.So(json.Unmarshal(w.Body.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.Areas, convey.ShouldResemble, deps.areas)
			})
		})

		convey.Convey("When using a method other than GET", func() {
			req := httptest.NewRequest(http.MethodPost, "/areas", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	convey.Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&fakeDeps{}, &fakeProcessor{})

		convey.Convey("When fetching stats", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "started")
		})

		convey.Convey("When probing health", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}
