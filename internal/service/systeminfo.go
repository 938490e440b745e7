package service

import (
	"time"

	"github.com/routewise/routewise/internal/buildinfo"
)

// SystemInfo contains version and runtime information.
type SystemInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime string    `json:"build_time"`
	StartedAt time.Time `json:"started_at"`
}

// NewSystemInfo captures build identity and the process start time.
func NewSystemInfo() SystemInfo {
	return SystemInfo{
		Version:   buildinfo.Version,
		GitCommit: buildinfo.GitCommit,
		BuildTime: buildinfo.BuildTime,
		StartedAt: time.Now().UTC(),
	}
}
