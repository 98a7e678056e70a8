package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics содержит метрики процесса сервера
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// ProcessStats снимок метрик процесса
type ProcessStats struct {
	Uptime      string  `json:"uptime"`
	MemoryMB    float64 `json:"memory_mb"`
	CPUPercent  float64 `json:"cpu_percent"`
	SystemCPU   float64 `json:"system_cpu"`
	Goroutines  int     `json:"goroutines"`
	NumGC       uint32  `json:"num_gc"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	ServerTime  int64   `json:"server_time"`
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// GetUptime возвращает время работы сервера
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

// GetCPUUsage возвращает использование CPU процессом в процентах
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	if sm.proc == nil {
		return sm.GetSystemCPUUsage()
	}
	cpuPercent, err := sm.proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, попробуем системную
		return sm.GetSystemCPUUsage()
	}
	return cpuPercent, nil
}

// GetSystemCPUUsage общее использование CPU системы с прошлого вызова (не блокирует)
func (sm *ServerMetrics) GetSystemCPUUsage() (float64, error) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercents) == 0 {
		return 0, err
	}
	return cpuPercents[0], nil
}

// Snapshot собирает метрики процесса; недоступные CPU-метрики остаются нулями
func (sm *ServerMetrics) Snapshot() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent, _ := sm.GetCPUUsage()
	systemCPU, _ := sm.GetSystemCPUUsage()

	return ProcessStats{
		Uptime:      sm.GetUptime(),
		MemoryMB:    float64(m.Alloc) / 1024 / 1024,
		CPUPercent:  cpuPercent,
		SystemCPU:   systemCPU,
		Goroutines:  runtime.NumGoroutine(),
		NumGC:       m.NumGC,
		HeapAllocMB: float64(m.HeapAlloc) / 1024 / 1024,
		ServerTime:  time.Now().Unix(),
	}
}
