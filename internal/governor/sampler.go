package governor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sampler abstrai a leitura de CPU e memória do host
type Sampler interface {
	Sample(ctx context.Context) (cpuPercent, memPercent float64, err error)
}

// SystemSampler lê métricas reais do host via gopsutil
type SystemSampler struct{}

var _ Sampler = (*SystemSampler)(nil)

func (SystemSampler) Sample(ctx context.Context) (float64, float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil {
		return 0, 0, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return cpuPct, 0, err
	}
	return cpuPct, vm.UsedPercent, nil
}
