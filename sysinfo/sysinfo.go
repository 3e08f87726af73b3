package sysinfo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Detect gathers CPU, memory, and cache topology for the current host.
// Partial failures degrade to defaults instead of aborting: a benchmark on a
// host with an unreadable sysfs is still worth running.
func Detect() Info {
	info := Info{
		LogicalCores: runtime.NumCPU(),
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUName = cpuInfo[0].ModelName
		info.FrequencyMHz = cpuInfo[0].Mhz
	} else {
		slog.Debug("cpu info unavailable", "err", err)
	}

	if physical, err := cpu.Counts(false); err == nil && physical > 0 {
		info.PhysicalCores = physical
	} else {
		info.PhysicalCores = info.LogicalCores
	}
	if logical, err := cpu.Counts(true); err == nil && logical > 0 {
		info.LogicalCores = logical
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.AvailMemory = vm.Available
	} else {
		slog.Debug("memory info unavailable", "err", err)
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.KernelVersion = hostInfo.KernelVersion
	}

	info.Cache = detectCache()
	return info
}

// detectCache reads L1/L2/L3 data-cache sizes from sysfs on cpu0. Only Data
// and Unified entries count; instruction caches are irrelevant to a memory
// benchmark.
func detectCache() CacheInfo {
	cacheInfo := CacheInfo{}
	cacheDir := "/sys/devices/system/cpu/cpu0/cache"

	for i := 0; i <= 3; i++ {
		levelData, err := os.ReadFile(filepath.Join(cacheDir, fmt.Sprintf("index%d/level", i)))
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(levelData)))
		if err != nil {
			continue
		}

		typeData, err := os.ReadFile(filepath.Join(cacheDir, fmt.Sprintf("index%d/type", i)))
		if err != nil {
			continue
		}
		cacheType := strings.TrimSpace(string(typeData))
		if cacheType != "Data" && cacheType != "Unified" {
			continue
		}

		sizeData, err := os.ReadFile(filepath.Join(cacheDir, fmt.Sprintf("index%d/size", i)))
		if err != nil {
			continue
		}
		size, err := ParseCacheSize(strings.TrimSpace(string(sizeData)))
		if err != nil {
			continue
		}

		switch level {
		case 1:
			cacheInfo.L1Size = size
		case 2:
			cacheInfo.L2Size = size
		case 3:
			cacheInfo.L3Size = size
		}
	}

	if cacheInfo.L1Size == 0 {
		cacheInfo.L1Size = 32 * 1024
	}
	if cacheInfo.L2Size == 0 {
		cacheInfo.L2Size = 256 * 1024
	}

	return cacheInfo
}

// ParseCacheSize converts a sysfs cache size string (e.g., "32K", "4M") to bytes.
func ParseCacheSize(sizeStr string) (uint64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if len(sizeStr) == 0 {
		return 0, fmt.Errorf("empty cache size string")
	}

	unit := sizeStr[len(sizeStr)-1:]
	valueStr := sizeStr[:len(sizeStr)-1]
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cache size value: %v", err)
	}

	switch strings.ToUpper(unit) {
	case "K":
		return value * 1024, nil
	case "M":
		return value * 1024 * 1024, nil
	case "G":
		return value * 1024 * 1024 * 1024, nil
	default:
		return 0, fmt.Errorf("unknown cache size unit: %s", unit)
	}
}
