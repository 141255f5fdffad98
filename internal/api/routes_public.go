package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statrelay-project/statrelay/internal/util"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "statrelay",
	})
}

// handleStatus returns uptime, host metrics, and per-deployment counters.
func (s *Server) handleStatus(c *gin.Context) {
	sysInfo := util.GetSystemInfo()

	games := gin.H{}
	for _, dep := range s.dispatcher.Deployments() {
		games[dep.Name] = dep.Stats()
	}

	body := gin.H{
		"uptime_sec": int64(time.Since(s.startedAt).Seconds()),
		"hostname":   sysInfo.Hostname,
		"os":         sysInfo.OS,
		"cpu_model":  sysInfo.CPUModel,
		"games":      games,
		"sessions":   s.sessions.Counts(),
	}

	if cpuPercent, err := util.GetCPUUsage(); err == nil {
		body["cpu_percent"] = cpuPercent
	}
	if memUsage, err := util.GetMemoryUsage(); err == nil {
		body["memory"] = memUsage
	}

	c.JSON(http.StatusOK, body)
}

// handleGames lists the configured deployments without their secrets.
func (s *Server) handleGames(c *gin.Context) {
	type gameInfo struct {
		Name            string `json:"name"`
		GameID          string `json:"game_id"`
		RequestVersion  string `json:"request_version"`
		ResponseVersion string `json:"response_version"`
		Encrypted       bool   `json:"encrypted_request"`
		RequireSession  bool   `json:"require_session"`
	}

	deps := s.dispatcher.Deployments()
	games := make([]gameInfo, 0, len(deps))
	for _, dep := range deps {
		games = append(games, gameInfo{
			Name:            dep.Name,
			GameID:          dep.Config.GameID,
			RequestVersion:  dep.Config.RequestVersion.String(),
			ResponseVersion: dep.Config.ResponseVersion.String(),
			Encrypted:       dep.Config.Encrypted,
			RequireSession:  dep.Config.RequireSession,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"games": games,
		"total": len(games),
	})
}
