package utils

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// SetupLogging installs the process-wide slog handler. Debug mode lowers the
// level and adds source locations; the default level keeps benchmark output
// readable.
func SetupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	slog.SetDefault(slog.New(handler))
}

// FormatSize converts bytes to a human-readable string (KB, MB, GB).
func FormatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	if size >= GB {
		return fmt.Sprintf("%.2fGB", float64(size)/float64(GB))
	}
	if size >= MB {
		return fmt.Sprintf("%.2fMB", float64(size)/float64(MB))
	}
	if size >= KB {
		return fmt.Sprintf("%.2fKB", float64(size)/float64(KB))
	}

	return fmt.Sprintf("%dB", size)
}

// FormatCount renders large operation counts with K/M/G suffixes.
func FormatCount(count uint64) string {
	switch {
	case count >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", float64(count)/1_000_000_000)
	case count >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.2fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// ParseSize parses a size string with units (e.g., 4K, 64K, 1G).
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	var multiplier int64 = 1

	switch {
	case strings.HasSuffix(sizeStr, "KB"):
		multiplier = 1024
		sizeStr = sizeStr[:len(sizeStr)-2]
	case strings.HasSuffix(sizeStr, "K"):
		multiplier = 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	case strings.HasSuffix(sizeStr, "MB"):
		multiplier = 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-2]
	case strings.HasSuffix(sizeStr, "M"):
		multiplier = 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	case strings.HasSuffix(sizeStr, "GB"):
		multiplier = 1024 * 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-2]
	case strings.HasSuffix(sizeStr, "G"):
		multiplier = 1024 * 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	}

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return size * multiplier, nil
}
