package api

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

type systemInfo struct {
	CPUUsage float64 `json:"cpu_usage"` // percent 0-100
	MemTotal uint64  `json:"mem_total"` // bytes
	MemUsed  uint64  `json:"mem_used"`  // bytes
}

func getSystemInfo() systemInfo {
	var info systemInfo

	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		info.CPUUsage = percent[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotal = vm.Total
		info.MemUsed = vm.Used
	}

	return info
}
