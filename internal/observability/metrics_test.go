package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")
	m.RecordNotification(NotificationDelivered, "whatsapp")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|GET|200"])
	assert.Equal(t, int64(20), snap.AvgLatencyMS["/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id|GET|NOT_FOUND"])
	assert.Equal(t, int64(1), snap.Notifications["delivered|whatsapp"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordNotification(NotificationDropped, "system")
	assert.Empty(t, m.Snapshot().Requests)
}
