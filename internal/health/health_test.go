package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(ctx context.Context) Status { return Status{Healthy: true} }

func TestCheckAll_Empty(t *testing.T) {
	healthy, statuses := NewRegistry(time.Second).CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, statuses)
}

func TestCheckAll_OrderAndNames(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register("history", ok)
	r.Register("eventbus", func(ctx context.Context) Status {
		return Status{Healthy: false, Detail: "disconnected"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	assert.False(t, healthy)
	require.Len(t, statuses, 2)
	assert.Equal(t, Status{Name: "history", Healthy: true}, statuses[0])
	assert.Equal(t, Status{Name: "eventbus", Healthy: false, Detail: "disconnected"}, statuses[1])
}

func TestCheckAll_Timeout(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	r.Register("slow", func(ctx context.Context) Status {
		time.Sleep(200 * time.Millisecond)
		return Status{Healthy: true}
	})

	start := time.Now()
	healthy, statuses := r.CheckAll(context.Background())
	assert.False(t, healthy)
	assert.Equal(t, "check timed out", statuses[0].Detail)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}
