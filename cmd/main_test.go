package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/okian/riskmap/internal/adapters/http/api"
	"github.com/okian/riskmap/internal/adapters/http/swagger"
	"github.com/okian/riskmap/internal/adapters/imageproc"
	app "github.com/okian/riskmap/internal/app"
	"github.com/okian/riskmap/internal/config"
	"github.com/okian/riskmap/pkg/logger"
	"github.com/okian/riskmap/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	// Service startup logs through the global logger.
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			// Test with environment variables
			_ = os.Setenv("RISKMAP_ADDR", ":8080")
			_ = os.Setenv("RISKMAP_STRICT_SAFETY", "true")
			_ = os.Setenv("RISKMAP_GUARD_CACHE_SIZE", "256")
			defer func() {
				_ = os.Unsetenv("RISKMAP_ADDR")
				_ = os.Unsetenv("RISKMAP_STRICT_SAFETY")
				_ = os.Unsetenv("RISKMAP_GUARD_CACHE_SIZE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StrictSafety, convey.ShouldBeTrue)
				convey.So(cfg.GuardCacheSize, convey.ShouldEqual, 256)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithStrictSafety(true),
					app.WithConfidenceThreshold(0.7),
					app.WithGuardCacheSize(256),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc, imageproc.NewProcessor())
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			// Set up test environment
			_ = os.Setenv("RISKMAP_ADDR", ":8080")
			_ = os.Setenv("RISKMAP_CONFIDENCE_THRESHOLD", "0.6")
			defer func() {
				_ = os.Unsetenv("RISKMAP_ADDR")
				_ = os.Unsetenv("RISKMAP_CONFIDENCE_THRESHOLD")
			}()

			convey.Convey("Then all components should work together", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// Load configuration
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)

				// Create and start the service
				svc := app.New(
					app.WithStrictSafety(cfg.StrictSafety),
					app.WithConfidenceThreshold(cfg.ConfidenceThreshold),
					app.WithGuardCacheSize(cfg.GuardCacheSize),
				)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()

				// Create HTTP server
				processor := imageproc.NewProcessor(
					imageproc.WithTargetDimension(cfg.MaxImageDimension),
				)
				server := api.NewServer(svc, svc, processor)
				convey.So(server, convey.ShouldNotBeNil)

				// Create HTTP mux and register routes
				mux := http.NewServeMux()
				convey.So(mux, convey.ShouldNotBeNil)

				swagger.Register(ctx, mux)
				server.Register(ctx, mux)

				// Service reports the embedded areas once started
				convey.So(svc.Areas(ctx), convey.ShouldContain, "lips")
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			// Set invalid configuration
			_ = os.Setenv("RISKMAP_ADDR", "")
			defer func() { _ = os.Unsetenv("RISKMAP_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			convey.Convey("Then service should fall back to defaults", func() {
				// Guard conditions reject out-of-range values
				svc := app.New(
					app.WithConfidenceThreshold(-1),
					app.WithGuardCacheSize(0),
					app.WithGuardTolerance(-5),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationConcurrency(t *testing.T) {
	convey.Convey("Given main application concurrency", t, func() {
		convey.Convey("When testing concurrent component creation", func() {
			numGoroutines := 10
			done := make(chan bool, numGoroutines)

			// Start multiple goroutines creating components
			for i := 0; i < numGoroutines; i++ {
				go func(id int) {
					defer func() {
						if r := recover(); r != nil {
							// Log the panic but don't fail the test
							t.Logf("Goroutine %d panicked: %v", id, r)
						}
						done <- true
					}()

					// Create service
					svc := app.New()
					if svc == nil {
						t.Errorf("Goroutine %d: service creation failed", id)
						return
					}

					// Create HTTP server
					server := api.NewServer(svc, svc, imageproc.NewProcessor())
					if server == nil {
						t.Errorf("Goroutine %d: HTTP server creation failed", id)
						return
					}

					// Create metrics manager with custom registry
					registry := prometheus.NewRegistry()
					manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
					if manager == nil {
						t.Errorf("Goroutine %d: metrics manager creation failed", id)
						return
					}
				}(i)
			}

			// Wait for all goroutines to complete
			for i := 0; i < numGoroutines; i++ {
				<-done
			}

			convey.Convey("Then all components should be created successfully", func() {
				// If we get here without panics, the test passed
				convey.So(true, convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationResourceCleanup(t *testing.T) {
	convey.Convey("Given main application resource cleanup", t, func() {
		convey.Convey("When testing service creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then stats should be available without starting", func() {
				stats := svc.GetStats()
				convey.So(stats, convey.ShouldNotBeNil)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When testing multiple service lifecycle cycles", func() {
			convey.Convey("Then start and stop should be repeatable", func() {
				ctx := context.Background()
				for i := 0; i < 3; i++ {
					svc := app.New()
					convey.So(svc, convey.ShouldNotBeNil)
					convey.So(svc.Start(ctx), convey.ShouldBeNil)

					stats := svc.GetStats()
					convey.So(stats["started"], convey.ShouldBeTrue)

					svc.Stop()
				}
			})
		})
	})
}
