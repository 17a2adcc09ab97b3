package ram

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nico19422009/mcauto/internal/logging"
)

// unitlessThresholdMB is the disambiguation policy for unit-less input:
// operators typing "4096" almost always mean megabytes while "4" means
// gigabytes, so values >= 256 are read as MB and smaller values as GB.
// Existing installations rely on this behavior, even though it accepts
// odd inputs like "300" as 300G.
const unitlessThresholdMB = 256

// oversizedHeapPercent is the share of physical memory at which a
// requested heap triggers a warning.
const oversizedHeapPercent = 85

const meminfoPath = "/proc/meminfo"

var specPattern = regexp.MustCompile(`^(\d+)([KMG]?)$`)

// Normalize converts free-form memory input ("4G", "4gb", "4096",
// "2048MB", " 2 g ") into a JVM-safe spec like "4G" or "4096M".
// Input that does not parse yields fallback; this is deliberate
// best-effort sanitizing, not strict validation.
func Normalize(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}

	v := strings.ToUpper(strings.ReplaceAll(input, " ", ""))
	v = strings.TrimSuffix(v, "B")

	m := specPattern.FindStringSubmatch(v)
	if m == nil {
		return fallback
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fallback
	}

	if unit := m[2]; unit != "" {
		return fmt.Sprintf("%d%s", n, unit)
	}

	if n >= unitlessThresholdMB {
		return fmt.Sprintf("%dM", n)
	}
	return fmt.Sprintf("%dG", n)
}

// WarnIfOversized logs a warning when the requested heap is at or above
// oversizedHeapPercent of the host's physical memory. It never blocks or
// fails the caller; hosts without a readable meminfo are skipped.
func WarnIfOversized(spec string) {
	totalMB, err := totalMemoryMB(meminfoPath)
	if err != nil || totalMB <= 0 {
		return
	}

	wantMB, ok := heapMB(spec)
	if !ok {
		return
	}

	if oversized(wantMB, totalMB) {
		logging.L().Warn("requested heap is close to or above physical memory",
			"requested_mb", wantMB,
			"total_mb", totalMB)
	}
}

func oversized(wantMB, totalMB int) bool {
	return wantMB >= totalMB*oversizedHeapPercent/100
}

// heapMB converts a normalized spec to megabytes. Specs it cannot
// interpret (K suffix, unparsed text) report ok=false.
func heapMB(spec string) (int, bool) {
	m := specPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(spec)))
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	switch m[2] {
	case "G":
		return n * 1024, true
	case "M":
		return n, true
	default:
		return 0, false
	}
}

func totalMemoryMB(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, err
		}
		return kb / 1024, nil
	}

	return 0, fmt.Errorf("MemTotal not found in %s", path)
}
