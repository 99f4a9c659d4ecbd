package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diogoX451/mentor/internal/governor"
	"github.com/diogoX451/mentor/pkg/types"
)

const maxSamples = 1000

// limiares de alerta; o controlador de degradação usa limiares mais
// apertados próprios
const (
	cpuAlertPercent  = 80.0
	memAlertPercent  = 85.0
	errRateAlert     = 0.1
	respTimeAlert    = 30 * time.Second
	successRateFloor = 0.9
)

type Config struct {
	Interval      time.Duration
	AlertCooldown time.Duration

	// OnSample é chamado após cada coleta (degradação, testes)
	OnSample func(types.HealthSample)
}

// SchedulerView é o que o monitor precisa do scheduler
type SchedulerView interface {
	Status() types.QueueStatus
	Metrics() []types.TaskMetrics
}

type alertKey struct {
	component string
	title     string
}

// Monitor amostra o sistema a intervalos fixos, mantém um ring de
// samples e levanta alertas com dedupe por (component, title)
// enquanto o alerta anterior não resolver.
type Monitor struct {
	cfg       Config
	sampler   governor.Sampler
	scheduler SchedulerView
	logger    *slog.Logger

	mu          sync.Mutex
	samples     []types.HealthSample
	alerts      []types.Alert
	lastAlertAt map[alertKey]time.Time
	nextAlertID int
	stats       types.RequestStats
	respTotal   time.Duration
	respCount   int64
	startedAt   time.Time
	now         func() time.Time

	stop chan struct{}
	done chan struct{}

	cpuGauge     prometheus.Gauge
	memGauge     prometheus.Gauge
	errRateGauge prometheus.Gauge
	queueGauge   prometheus.Gauge
	requestCount *prometheus.CounterVec
	agentCalls   *prometheus.CounterVec
}

func NewMonitor(cfg Config, sampler governor.Sampler, sched SchedulerView, reg prometheus.Registerer, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = 5 * time.Minute
	}
	if sampler == nil {
		sampler = governor.SystemSampler{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:         cfg,
		sampler:     sampler,
		scheduler:   sched,
		logger:      logger,
		lastAlertAt: make(map[alertKey]time.Time),
		stats: types.RequestStats{
			AgentCalls:  make(map[string]int),
			ErrorCounts: make(map[string]int),
		},
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),

		cpuGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mentor", Name: "cpu_percent",
			Help: "Host CPU usage sampled by the health monitor.",
		}),
		memGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mentor", Name: "memory_percent",
			Help: "Host memory usage sampled by the health monitor.",
		}),
		errRateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mentor", Name: "error_rate",
			Help: "Request error rate since startup.",
		}),
		queueGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mentor", Name: "scheduler_queue_depth",
			Help: "Units waiting in the scheduler queue.",
		}),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentor", Name: "requests_total",
			Help: "Requests processed, by outcome.",
		}, []string{"outcome"}),
		agentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentor", Name: "agent_calls_total",
			Help: "Agent invocations, by agent name.",
		}, []string{"agent"}),
	}

	if reg != nil {
		reg.MustRegister(m.cpuGauge, m.memGauge, m.errRateGauge, m.queueGauge, m.requestCount, m.agentCalls)
	}
	return m
}

// Start lança o loop de amostragem em background
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	m.startedAt = m.now()
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Collect(ctx)
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	m.logger.Info("health monitor started", slog.Duration("interval", m.cfg.Interval))
}

func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

// Collect tira uma amostra imediata, avalia limiares e levanta os
// alertas devidos
func (m *Monitor) Collect(ctx context.Context) types.HealthSample {
	cpuPct, memPct, err := m.sampler.Sample(ctx)
	if err != nil {
		m.logger.Warn("health sample failed", slog.String("error", err.Error()))
	}

	qs := m.scheduler.Status()

	m.mu.Lock()
	errRate := 0.0
	successRate := 1.0
	if total := m.stats.TotalRequests; total > 0 {
		errRate = float64(m.stats.FailedRequests) / float64(total)
		successRate = float64(m.stats.SuccessfulRequests) / float64(total)
	}
	var avgResp time.Duration
	if m.respCount > 0 {
		avgResp = m.respTotal / time.Duration(m.respCount)
	}
	m.mu.Unlock()

	sample := types.HealthSample{
		Timestamp:       m.now(),
		CPUPercent:      cpuPct,
		MemoryPercent:   memPct,
		ActiveTasks:     qs.ActiveTasks,
		QueuedTasks:     qs.QueueSize,
		ErrorRate:       errRate,
		SuccessRate:     successRate,
		AvgResponseTime: avgResp,
		ComponentStatus: m.componentHealth(evalInput{
			cpu: cpuPct, mem: memPct,
			errRate: errRate, successRate: successRate,
			avgResp: avgResp, qs: qs,
		}),
	}

	m.cpuGauge.Set(cpuPct)
	m.memGauge.Set(memPct)
	m.errRateGauge.Set(errRate)
	m.queueGauge.Set(float64(qs.QueueSize))

	m.mu.Lock()
	m.samples = append(m.samples, sample)
	if len(m.samples) > maxSamples {
		m.samples = m.samples[len(m.samples)-maxSamples:]
	}
	m.mu.Unlock()

	m.evaluate(sample)
	if m.cfg.OnSample != nil {
		m.cfg.OnSample(sample)
	}
	return sample
}

type evalInput struct {
	cpu, mem, errRate, successRate float64
	avgResp                        time.Duration
	qs                             types.QueueStatus
}

func (m *Monitor) componentHealth(s evalInput) map[string]types.SystemHealth {
	out := map[string]types.SystemHealth{
		"resources": types.HealthHealthy,
		"scheduler": types.HealthHealthy,
		"requests":  types.HealthHealthy,
	}
	if s.cpu > cpuAlertPercent || s.mem > memAlertPercent {
		out["resources"] = types.HealthDegraded
	}
	if s.cpu > 95 || s.mem > 95 {
		out["resources"] = types.HealthCritical
	}
	if !s.qs.Running {
		out["scheduler"] = types.HealthUnhealthy
	} else if s.qs.QueueSize > s.qs.Workers*3 {
		out["scheduler"] = types.HealthDegraded
	}
	if s.errRate > errRateAlert || s.successRate < successRateFloor {
		out["requests"] = types.HealthDegraded
	}
	if s.errRate > 0.5 {
		out["requests"] = types.HealthUnhealthy
	}
	return out
}

func (m *Monitor) evaluate(s types.HealthSample) {
	if s.CPUPercent > cpuAlertPercent {
		m.raise(types.AlertWarning, "resources", "high cpu usage",
			fmt.Sprintf("cpu at %.1f%%, limit %.1f%%", s.CPUPercent, cpuAlertPercent))
	}
	if s.MemoryPercent > memAlertPercent {
		m.raise(types.AlertWarning, "resources", "high memory usage",
			fmt.Sprintf("memory at %.1f%%, limit %.1f%%", s.MemoryPercent, memAlertPercent))
	}
	if s.ErrorRate > errRateAlert {
		m.raise(types.AlertError, "requests", "elevated error rate",
			fmt.Sprintf("error rate %.2f above %.2f", s.ErrorRate, errRateAlert))
	}
	if s.AvgResponseTime > respTimeAlert {
		m.raise(types.AlertWarning, "requests", "slow responses",
			fmt.Sprintf("avg response %s above %s", s.AvgResponseTime, respTimeAlert))
	}
	if s.SuccessRate < successRateFloor && s.ErrorRate > 0 {
		m.raise(types.AlertWarning, "requests", "low success rate",
			fmt.Sprintf("success rate %.2f below %.2f", s.SuccessRate, successRateFloor))
	}
}

// raise cria o alerta salvo se um igual (component, title) não
// resolvido foi levantado dentro do cool-down
func (m *Monitor) raise(level types.AlertLevel, component, title, message string) {
	now := m.now()
	key := alertKey{component, title}

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastAlertAt[key]; ok && now.Sub(last) < m.cfg.AlertCooldown {
		for i := len(m.alerts) - 1; i >= 0; i-- {
			a := &m.alerts[i]
			if a.Component == component && a.Title == title && !a.Resolved {
				return
			}
		}
	}

	m.nextAlertID++
	m.alerts = append(m.alerts, types.Alert{
		ID:        m.nextAlertID,
		Level:     level,
		Title:     title,
		Message:   message,
		Component: component,
		Timestamp: now,
	})
	m.lastAlertAt[key] = now

	m.logger.Warn("alert raised",
		slog.String("level", level.String()),
		slog.String("component", component),
		slog.String("title", title),
		slog.String("message", message))
}

// Resolve marca como resolvidos todos os alertas abertos com o par
// (component, title); devolve quantos resolveu
func (m *Monitor) Resolve(component, title string) int {
	now := m.now()
	resolved := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.Component == component && a.Title == title && !a.Resolved {
			a.Resolved = true
			t := now
			a.ResolvedAt = &t
			resolved++
		}
	}
	return resolved
}

// RecordRequest alimenta os contadores agregados de pedidos
func (m *Monitor) RecordRequest(success bool, elapsed time.Duration, errKind string) {
	m.mu.Lock()
	m.stats.TotalRequests++
	if success {
		m.stats.SuccessfulRequests++
	} else {
		m.stats.FailedRequests++
		if errKind != "" {
			m.stats.ErrorCounts[errKind]++
		}
	}
	m.respTotal += elapsed
	m.respCount++
	m.mu.Unlock()

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.requestCount.WithLabelValues(outcome).Inc()
}

// RecordAgentCall conta invocações por agente
func (m *Monitor) RecordAgentCall(agentName string) {
	m.mu.Lock()
	m.stats.AgentCalls[agentName]++
	m.mu.Unlock()
	m.agentCalls.WithLabelValues(agentName).Inc()
}

// ActiveAlerts devolve os alertas não resolvidos, mais recente primeiro
func (m *Monitor) ActiveAlerts() []types.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Alert{}
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if !m.alerts[i].Resolved {
			out = append(out, m.alerts[i])
		}
	}
	return out
}

// LatestSample devolve a amostra mais recente, se existir
func (m *Monitor) LatestSample() *types.HealthSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return nil
	}
	s := m.samples[len(m.samples)-1]
	return &s
}

// Stats devolve uma cópia dos contadores agregados
func (m *Monitor) Stats() types.RequestStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.AgentCalls = make(map[string]int, len(m.stats.AgentCalls))
	for k, v := range m.stats.AgentCalls {
		out.AgentCalls[k] = v
	}
	out.ErrorCounts = make(map[string]int, len(m.stats.ErrorCounts))
	for k, v := range m.stats.ErrorCounts {
		out.ErrorCounts[k] = v
	}
	return out
}

// Uptime desde o Start
func (m *Monitor) Uptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startedAt.IsZero() {
		return 0
	}
	return m.now().Sub(m.startedAt)
}

// Overall reduz a saúde por componente a um estado único
func (m *Monitor) Overall() types.SystemHealth {
	s := m.LatestSample()
	if s == nil {
		return types.HealthHealthy
	}
	worst := types.HealthHealthy
	rank := map[types.SystemHealth]int{
		types.HealthHealthy: 0, types.HealthDegraded: 1,
		types.HealthUnhealthy: 2, types.HealthCritical: 3,
	}
	for _, h := range s.ComponentStatus {
		if rank[h] > rank[worst] {
			worst = h
		}
	}
	return worst
}
