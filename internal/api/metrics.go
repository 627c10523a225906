package api

import (
	"fmt"
	"time"

	"github.com/annel0/endless-terrain/internal/observability"
)

// ServerMetrics содержит метрики процесса для /api/stats
type ServerMetrics struct {
	StartTime time.Time
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// GetUptime возвращает время работы в виде "1д 2ч 3м 4с"
func (sm *ServerMetrics) GetUptime() string {
	uptime := time.Since(sm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// Snapshot возвращает время работы и потребление ресурсов
func (sm *ServerMetrics) Snapshot() map[string]interface{} {
	proc := observability.ReadProcessStats()
	return map[string]interface{}{
		"uptime":      sm.GetUptime(),
		"server_time": time.Now().Unix(),
		"process":     proc,
		"memory_mb":   fmt.Sprintf("%.2f", float64(proc.HeapAlloc)/1024/1024),
		"cpu_percent": fmt.Sprintf("%.2f", proc.CPUPercent),
	}
}
