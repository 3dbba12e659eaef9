package monitor

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// collectingHandler implements domain.DetectionHandler for testing
type collectingHandler struct {
	mu         sync.Mutex
	detections []domain.Detection
}

func (h *collectingHandler) Handle(ctx context.Context, d domain.Detection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detections = append(h.detections, d)
}

func (h *collectingHandler) all() []domain.Detection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Detection(nil), h.detections...)
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.detections)
}
