// Package sysinfo reports resource usage of the observer process for the
// status endpoint.
package sysinfo

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

type Snapshot struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
}

// Collect samples the current process. CPU percent is measured since process
// start on the first call and between calls afterwards.
func Collect() (*Snapshot, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{PID: p.Pid}
	if cpu, err := p.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		snap.RSSBytes = mem.RSS
	}
	return snap, nil
}
