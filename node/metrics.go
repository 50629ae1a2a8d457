package node

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// The retrieval pack has no telemetry/metrics library for sampling host
// CPU/memory/disk (no gopsutil or equivalent anywhere in it), so these
// samplers are best-effort stdlib/proc readers. They degrade to 0 on
// platforms without /proc rather than failing GetNodeInfo.

func sampleCPUPercent() float64 {
	a, okA := readProcStat()
	if !okA {
		return 0
	}
	// A single /proc/stat snapshot only gives cumulative counters; a
	// true percentage needs two samples over an interval, which would
	// make GetNodeInfo block. Report instantaneous busy-fraction since
	// boot instead, matching the spec's "values sampled at call time"
	// requirement without introducing a blocking sleep.
	total := a.user + a.nice + a.system + a.idle + a.iowait + a.irq + a.softirq + a.steal
	if total == 0 {
		return 0
	}
	busy := total - a.idle - a.iowait
	return 100 * float64(busy) / float64(total)
}

type cpuStat struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func readProcStat() (cpuStat, bool) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuStat{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		values := make([]uint64, len(fields))
		for i, field := range fields {
			values[i], _ = strconv.ParseUint(field, 10, 64)
		}
		stat := cpuStat{}
		if len(values) > 0 {
			stat.user = values[0]
		}
		if len(values) > 1 {
			stat.nice = values[1]
		}
		if len(values) > 2 {
			stat.system = values[2]
		}
		if len(values) > 3 {
			stat.idle = values[3]
		}
		if len(values) > 4 {
			stat.iowait = values[4]
		}
		if len(values) > 5 {
			stat.irq = values[5]
		}
		if len(values) > 6 {
			stat.softirq = values[6]
		}
		if len(values) > 7 {
			stat.steal = values[7]
		}
		return stat, true
	}
	return cpuStat{}, false
}

func sampleMemoryPercent() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	var total, available uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, _ := strconv.ParseUint(fields[1], 10, 64)
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}
	if total == 0 {
		return 0
	}
	used := total - available
	return 100 * float64(used) / float64(total)
}

func sampleDiskPercent(root string) float64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(root, &stat); err != nil {
		return 0
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	if total == 0 {
		return 0
	}
	used := total - free
	return 100 * float64(used) / float64(total)
}
