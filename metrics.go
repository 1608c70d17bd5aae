package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// cpuSampleWindow is how long Snapshot blocks to measure CPU utilisation.
const cpuSampleWindow = time.Second

// Uptime is elapsed time since boot split into whole units.
type Uptime struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

func splitUptime(secs uint64) Uptime {
	days, rem := secs/86400, secs%86400
	hours, rem := rem/3600, rem%3600
	minutes, seconds := rem/60, rem%60
	return Uptime{
		Days:    int(days),
		Hours:   int(hours),
		Minutes: int(minutes),
		Seconds: int(seconds),
	}
}

// Partition is one mounted filesystem. Usage is only filled for fixed drives.
type Partition struct {
	Device     string
	Mountpoint string
	Opts       []string
	Fixed      bool
	Total      uint64
	Used       uint64
	Free       uint64
}

// HostSnapshot holds system-level telemetry taken at one instant.
type HostSnapshot struct {
	Hostname string
	TakenAt  time.Time
	Uptime   Uptime

	DiskPath  string
	DiskTotal uint64
	DiskUsed  uint64
	DiskFree  uint64

	CPUCores   int
	CPUPercent float64

	RAMTotal     uint64
	RAMUsed      uint64
	RAMAvailable uint64
	RAMPercent   float64

	Partitions []Partition
}

// Collector reads host telemetry through gopsutil.
type Collector struct {
	log       logr.Logger
	diskPath  string
	cpuWindow time.Duration
	now       func() time.Time
}

func newCollector(log logr.Logger, diskPath string) *Collector {
	return &Collector{
		log:       log,
		diskPath:  diskPath,
		cpuWindow: cpuSampleWindow,
		now:       time.Now,
	}
}

// Snapshot gathers uptime, disk, CPU, RAM and partition data. It blocks for
// the CPU sample window.
func (c *Collector) Snapshot(ctx context.Context) (HostSnapshot, error) {
	now := c.now()
	snap := HostSnapshot{
		Hostname: hostname(),
		TakenAt:  now,
		DiskPath: c.diskPath,
	}

	boot, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("boot time: %w", err)
	}
	if elapsed := now.Unix() - int64(boot); elapsed > 0 {
		snap.Uptime = splitUptime(uint64(elapsed))
	}

	usage, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("disk usage %s: %w", c.diskPath, err)
	}
	snap.DiskTotal, snap.DiskUsed, snap.DiskFree = usage.Total, usage.Used, usage.Free

	percents, err := cpu.PercentWithContext(ctx, c.cpuWindow, false)
	if err != nil {
		c.log.Error(err, "cpu percent")
	} else if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	cores, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		c.log.Error(err, "cpu count")
	}
	snap.CPUCores = cores

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("virtual memory: %w", err)
	}
	snap.RAMTotal, snap.RAMUsed, snap.RAMAvailable = vm.Total, vm.Used, vm.Available
	snap.RAMPercent = vm.UsedPercent

	snap.Partitions = c.partitions(ctx)
	return snap, nil
}

func (c *Collector) partitions(ctx context.Context) []Partition {
	stats, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		c.log.Error(err, "list partitions")
		return nil
	}

	parts := make([]Partition, 0, len(stats))
	for _, st := range stats {
		p := Partition{
			Device:     st.Device,
			Mountpoint: st.Mountpoint,
			Opts:       st.Opts,
			Fixed:      isFixedDrive(st.Mountpoint),
		}
		if p.Fixed {
			u, err := disk.UsageWithContext(ctx, driveRoot(st.Mountpoint))
			if err != nil {
				c.log.V(1).Info("partition usage unavailable", "mountpoint", st.Mountpoint, "err", err)
			} else {
				p.Total, p.Used, p.Free = u.Total, u.Used, u.Free
			}
		}
		parts = append(parts, p)
	}
	return parts
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
