//go:build darwin

package helpers

import (
	"os/exec"
	"strconv"
	"strings"
)

// TotalSystemMemoryMB returns the total physical memory in MB, or 0 when the
// probe fails.
func TotalSystemMemoryMB() int {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return 0
	}

	total, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return int(total / 1024 / 1024)
}
