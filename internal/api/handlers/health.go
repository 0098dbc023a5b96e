package handlers

import (
	"github.com/osa911/portfolio/internal/utils"
	"github.com/osa911/portfolio/internal/version"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports liveness and build information
type HealthResponse struct {
	Status    string `json:"status"`
	Transport string `json:"transport"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

type HealthHandler struct {
	transport string
}

func NewHealthHandler(transport string) *HealthHandler {
	return &HealthHandler{transport: transport}
}

// Check reports that the process is serving. It does not contact the mail
// provider; that happens once at startup.
func (h *HealthHandler) Check(c *gin.Context) {
	info := version.GetBuildInfo()
	utils.HandleSuccess(c, HealthResponse{
		Status:    "ok",
		Transport: h.transport,
		Version:   info.Version,
		GitCommit: info.GitCommit,
		BuildTime: info.BuildTime,
	})
}
