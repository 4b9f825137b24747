package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/app"
)

// registerUploadRoutes serves locally stored blobs. Object storage backends hand out
// their own public URLs, so nothing is mounted for them.
func registerUploadRoutes(r *gin.Engine, cfg *app.Config, dir string) {
	if cfg.Storage.BackendName() != "local" || strings.TrimSpace(dir) == "" {
		return
	}
	base := strings.TrimSpace(cfg.Storage.Local.BaseURL)
	if base == "" {
		base = "/uploads"
	}
	r.Static(base, dir)
}
