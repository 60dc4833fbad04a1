package health

import "time"

// Status is the payload served on /api/v1/health.
type Status struct {
	OK              bool   `json:"ok"`
	PreviewRenderer string `json:"previewRenderer"`
	PriceEntries    int    `json:"priceEntries"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
}

// Service encapsulates health-related checks.
type Service struct {
	renderer     string
	priceEntries int
	started      time.Time
	now          func() time.Time
}

// NewService constructs a new health service.
func NewService(renderer string, priceEntries int) *Service {
	return &Service{
		renderer:     renderer,
		priceEntries: priceEntries,
		started:      time.Now(),
		now:          time.Now,
	}
}

// Status reports readiness. The service is not ok without a price table.
func (s *Service) Status() Status {
	return Status{
		OK:              s.priceEntries > 0,
		PreviewRenderer: s.renderer,
		PriceEntries:    s.priceEntries,
		UptimeSeconds:   int64(s.now().Sub(s.started).Seconds()),
	}
}
