// Package sysres samples live CPU and memory usage to size the analysis
// worker pool. OS query failures fall back to conservative fixed values;
// resource sizing must never abort a run.
package sysres

import (
	"math"
	"runtime"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/load"
)

// Snapshot is a point-in-time view of system load.
type Snapshot struct {
	CPUPercent   float64
	RAMPercent   float64
	TotalRAMMb   int
	FreeRAMMb    int
	LogicalCores int
}

// Conservative fallback used when OS counters cannot be read.
var fallbackSnapshot = Snapshot{
	CPUPercent:   50,
	RAMPercent:   75,
	TotalRAMMb:   4096,
	FreeRAMMb:    1024,
	LogicalCores: 2,
}

// Sample reads the current system load. It never fails.
func Sample() Snapshot {
	s := Snapshot{LogicalCores: runtime.NumCPU()}
	if s.LogicalCores < 1 {
		s.LogicalCores = fallbackSnapshot.LogicalCores
	}

	total := memory.TotalMemory()
	free := memory.FreeMemory()
	if total == 0 {
		log.Warn().Msg("memory counters unavailable, using fallback figures")
		s.TotalRAMMb = fallbackSnapshot.TotalRAMMb
		s.FreeRAMMb = fallbackSnapshot.FreeRAMMb
	} else {
		s.TotalRAMMb = int(total / (1 << 20))
		s.FreeRAMMb = int(free / (1 << 20))
	}
	if s.TotalRAMMb > 0 {
		s.RAMPercent = 100 * float64(s.TotalRAMMb-s.FreeRAMMb) / float64(s.TotalRAMMb)
	}

	cpu, err := cpuPercent(s.LogicalCores)
	if err != nil {
		log.Warn().Err(err).Msg("cpu load unavailable, using fallback figure")
		cpu = fallbackSnapshot.CPUPercent
	}
	s.CPUPercent = cpu
	return s
}

// cpuPercent derives a utilization percentage from the 1-minute load
// average relative to the logical core count.
func cpuPercent(cores int) (float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, err
	}
	pct := 100 * avg.Load1 / float64(cores)
	return clampF(pct, 0, 100), nil
}

// FreeCores estimates how many logical cores are idle.
func (s Snapshot) FreeCores() float64 {
	return float64(s.LogicalCores) * (1 - s.CPUPercent/100)
}

// HeadroomMb returns how much RAM can be claimed before total system usage
// would exceed ceiling (a 0..1 fraction of total RAM).
func (s Snapshot) HeadroomMb(ceiling float64) int {
	used := s.TotalRAMMb - s.FreeRAMMb
	headroom := ceiling*float64(s.TotalRAMMb) - float64(used)
	return int(clampF(headroom, 0, float64(s.TotalRAMMb)))
}

// Budget is the worker/memory allowance for one discovery run. Computed once
// per run; never persisted.
type Budget struct {
	Workers         int
	HashPerWorkerMb int
}

const (
	minHashMb = 16
	maxHashMb = 512
)

// ComputeBudget sizes the pool from a snapshot. maxWorkers <= 0 means "as
// many as free cores allow".
func ComputeBudget(s Snapshot, maxWorkers int, loadCeiling float64) Budget {
	workers := int(math.Floor(s.FreeCores()))
	if workers < 1 {
		workers = 1
	}
	if maxWorkers <= 0 {
		maxWorkers = s.LogicalCores
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	totalBudget := s.HeadroomMb(loadCeiling)
	hash := totalBudget / (workers + 1)
	if hash < minHashMb {
		hash = minHashMb
	}
	if hash > maxHashMb {
		hash = maxHashMb
	}
	return Budget{Workers: workers, HashPerWorkerMb: hash}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
