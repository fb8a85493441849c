package handlers

import (
	"errors"
	"net/http"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobRunner is the part of the background scheduler the API exposes
type JobRunner interface {
	RunNow(name string) error
	NextRuns() map[string]time.Time
}

type JobHandlers struct {
	jobs JobRunner
}

func NewJobHandlers(jobs JobRunner) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"next_runs": h.jobs.NextRuns(),
	})
}

// RunJob triggers a scheduled job immediately. The job runs in the background.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.jobs.RunNow(name); err != nil {
		if errors.Is(err, background.ErrUnknownJob) {
			return common.SendNotFoundError(c, "job "+name)
		}
		return common.SendServerError(c, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "triggered",
	})
}

func (h *JobHandlers) Register(g *echo.Group) {
	g.GET("/jobs", h.ListJobs)
	g.POST("/jobs/:name/run", h.RunJob)
}
