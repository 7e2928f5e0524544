package mockagent

import (
	"context"
	"sync"
	"time"

	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// Sampler produces the host section of a status report.
type Sampler interface {
	Sample(ctx context.Context) (models.AgentSystem, error)
}

// HostSampler reads real metrics of the machine it runs on.
type HostSampler struct {
	mu       sync.Mutex
	lastNet  *net.IOCountersStat
	lastTime time.Time
}

// Sample collects CPU, memory, load, disk and network figures. Network rates
// are computed against the previous call and are zero on the first one.
func (s *HostSampler) Sample(ctx context.Context) (models.AgentSystem, error) {
	var sys models.AgentSystem

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return sys, err
	}
	if len(percents) > 0 {
		sys.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return sys, err
	}
	sys.MemoryUsedMB = float64(vm.Used) / (1 << 20)
	sys.MemoryTotalMB = float64(vm.Total) / (1 << 20)

	// Load average is not available everywhere.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		sys.LoadAvg1m, sys.LoadAvg5m, sys.LoadAvg15m = avg.Load1, avg.Load5, avg.Load15
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		sys.DiskUsedGB = float64(usage.Used) / (1 << 30)
		sys.DiskTotalGB = float64(usage.Total) / (1 << 30)
	}

	counters, err := net.IOCountersWithContext(ctx, false)
	if err == nil && len(counters) > 0 {
		s.applyNetRates(&sys, counters[0], time.Now())
	}
	return sys, nil
}

func (s *HostSampler) applyNetRates(sys *models.AgentSystem, cur net.IOCountersStat, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sys.NetErrors = float64(cur.Errin + cur.Errout)
	sys.NetDrops = float64(cur.Dropin + cur.Dropout)
	if s.lastNet != nil {
		if secs := now.Sub(s.lastTime).Seconds(); secs > 0 {
			sys.NetInMbps = mbps(cur.BytesRecv, s.lastNet.BytesRecv, secs)
			sys.NetOutMbps = mbps(cur.BytesSent, s.lastNet.BytesSent, secs)
		}
	}
	s.lastNet = &cur
	s.lastTime = now
}

func mbps(cur, prev uint64, secs float64) float64 {
	if cur < prev {
		// Counter reset.
		return 0
	}
	return float64(cur-prev) * 8 / 1e6 / secs
}
