package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/pdf-merger/internal/api/handlers/job"
)

// Setup registers the job API routes.
func Setup(h *job.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/jobs", h.Submit)       // submit a merge job
	api.GET("/jobs/:id", h.Get)       // job status and progress
	api.DELETE("/jobs/:id", h.Cancel) // cancel a running job

	return r
}
