// Package health reports per-channel health derived from the published gauges.
package health

// SystemStatus represents the overall health state of the watcher or a channel.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ChannelHealth is the health of one monitored channel. Fields are nil when the
// corresponding series has not been published since the last reset.
type ChannelHealth struct {
	ChainID            string       `json:"chain_id"`
	PortID             string       `json:"port_id"`
	ChannelID          string       `json:"channel_id"`
	DestinationChainID string       `json:"destination_chain_id"`
	Status             SystemStatus `json:"status"`

	QueryStatus      *float64 `json:"query_status,omitempty"`
	BacklogStatus    *float64 `json:"backlog_status,omitempty"`
	BacklogCount     *float64 `json:"backlog_count,omitempty"`
	ClientStatus     *float64 `json:"client_status,omitempty"`
	TimeBeforeExpire *float64 `json:"time_before_expire_seconds,omitempty"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus             `json:"system_status"`
	Channels     map[string]ChannelHealth `json:"channels"`
}

// Aggregate returns the worst status of the report.
func Aggregate(channels map[string]ChannelHealth) SystemStatus {
	status := StatusHealthy
	for _, ch := range channels {
		if ch.Status == StatusCritical {
			return StatusCritical
		}
		if ch.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

func (c *ChannelHealth) evaluate() {
	switch {
	case isSet(c.QueryStatus, 1):
		c.Status = StatusCritical
	case isSet(c.ClientStatus, 1) && isSet(c.TimeBeforeExpire, 0):
		c.Status = StatusCritical
	case isSet(c.BacklogStatus, 1) || isSet(c.ClientStatus, 1):
		c.Status = StatusDegraded
	default:
		c.Status = StatusHealthy
	}
}

func isSet(v *float64, want float64) bool {
	return v != nil && *v == want
}
