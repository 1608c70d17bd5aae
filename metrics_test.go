package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitUptime(t *testing.T) {
	secs := uint64(2*86400 + 3*3600 + 15*60 + 42)
	assert.Equal(t, Uptime{Days: 2, Hours: 3, Minutes: 15, Seconds: 42}, splitUptime(secs))
	assert.Equal(t, Uptime{}, splitUptime(0))
	assert.Equal(t, Uptime{Minutes: 1}, splitUptime(60))
}

func TestCollectorSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("samples the live host")
	}
	dir, err := os.Getwd()
	require.NoError(t, err)

	c := newCollector(logr.Discard(), dir)
	c.cpuWindow = 50 * time.Millisecond

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Hostname)
	assert.Equal(t, dir, snap.DiskPath)
	assert.Positive(t, snap.DiskTotal)
	assert.Positive(t, snap.RAMTotal)
	assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestCollectorSnapshot_BadDiskPath(t *testing.T) {
	c := newCollector(logr.Discard(), "/definitely/not/a/mount/point")
	c.cpuWindow = time.Millisecond

	_, err := c.Snapshot(context.Background())
	assert.Error(t, err)
}
