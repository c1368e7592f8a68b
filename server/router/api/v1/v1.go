package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/timextag/internal/profile"
	apierrors "github.com/hrygo/timextag/server/internal/errors"
	"github.com/hrygo/timextag/server/internal/observability"
	ratelimit "github.com/hrygo/timextag/server/middleware"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
)

// maxBodyLimit bounds the size of documents posted for tagging.
const maxBodyLimit = "32M"

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Tagger  tagger.Service
	Metrics *observability.Metrics

	// tagSemaphore bounds the documents tagged concurrently through the API.
	tagSemaphore *semaphore.Weighted
	rateLimiter  *ratelimit.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, tagService tagger.Service) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Store:        store,
		Tagger:       tagService,
		Metrics:      observability.GlobalMetrics(),
		tagSemaphore: semaphore.NewWeighted(int64(max(profile.Concurrency, 1))),
		rateLimiter:  ratelimit.NewRateLimiter(time.Second/10, 20),
	}
}

// RegisterRoutes registers the v1 HTTP handlers with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.Use(middleware.Recover())
	group.Use(middleware.BodyLimit(maxBodyLimit))
	group.Use(s.rateLimiter.Middleware())

	// The colon is escaped so echo does not read ":tag" as a path parameter.
	group.POST("/documents\\:tag", s.TagDocument)
	group.GET("/documents/:id/annotations", s.ListAnnotations)
	group.GET("/system/metrics", s.GetMetrics)
}

// writeError renders err as a structured API error.
func writeError(c echo.Context, err error) error {
	apiErr := apierrors.FromError(err)
	status := apiErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", c.Path()),
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
			slog.String("error", err.Error()))
	}
	return c.JSON(status, apiErr)
}
