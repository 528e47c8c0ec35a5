//go:build linux

package mood

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// loadScale is the fixed-point shift used by sysinfo(2) load averages.
const loadScale = 1 << 16

// HostLoad samples the 1-minute load average through sysinfo(2).
type HostLoad struct{}

// NormalizedLoad returns load1 divided by the CPU count.
func (HostLoad) NormalizedLoad() (float64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	load1 := float64(info.Loads[0]) / loadScale
	return load1 / float64(runtime.NumCPU()), nil
}
