package observability

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/endless-terrain/internal/logging"
)

// ProcessStats: снимок потребления ресурсов процессом
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	HeapAlloc  uint64  `json:"heap_alloc_bytes"`
	HeapSys    uint64  `json:"heap_sys_bytes"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
	CPUPercent float64 `json:"cpu_percent"`
	SystemCPU  float64 `json:"system_cpu_percent"`
}

// ReadProcessStats собирает статистику процесса. Ошибки gopsutil не фатальны:
// соответствующие поля остаются нулевыми.
func ReadProcessStats() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := ProcessStats{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			st.RSSBytes = mem.RSS
		}
		if pct, err := proc.CPUPercent(); err == nil {
			st.CPUPercent = pct
		}
	}
	// интервал 0: сравнение с предыдущим вызовом, без ожидания
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		st.SystemCPU = pcts[0]
	}
	return st
}

// String форматирует статистику для логов
func (s ProcessStats) String() string {
	return "rss=" + humanize.Bytes(s.RSSBytes) +
		" heap=" + humanize.Bytes(s.HeapAlloc) + "/" + humanize.Bytes(s.HeapSys) +
		" gc=" + humanize.Comma(int64(s.NumGC)) +
		" goroutines=" + humanize.Comma(int64(s.Goroutines))
}

// StartProcessReporter раз в interval пишет статистику процесса в лог, пока не отменён ctx
func StartProcessReporter(ctx context.Context, interval time.Duration, logger *logging.Logger) {
	logger = logging.OrDefault(logger)
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Info("📊 Процесс: %s", ReadProcessStats())
			case <-ctx.Done():
				return
			}
		}
	}()
}
