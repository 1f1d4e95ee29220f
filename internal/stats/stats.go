package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

// Metric names published under /debug/vars.
const (
	NumActiveClients  = "NumActiveClients"
	NumOnlineUsers    = "NumOnlineUsers"
	NumMessagesSent   = "NumMessagesSent"
	NumAdvisoryErrors = "NumAdvisoryErrors"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
	mu         sync.RWMutex
	stopped    bool
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a stats updater, registers the chat metrics and
// mounts the expvar handler on mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
		vars:       new(expvar.Map).Init(),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range []string{NumActiveClients, NumOnlineUsers, NumMessagesSent, NumAdvisoryErrors} {
		su.RegisterMetric(name)
	}
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			continue
		}

		metric.Add(int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.send(&metricsUpdateReq{name: name, value: 1})
}

func (su *StatsUpdater) Decr(name string) {
	su.send(&metricsUpdateReq{name: name, value: -1})
}

// send drops the update rather than block a caller when the queue is full
// or the updater has stopped.
func (su *StatsUpdater) send(req *metricsUpdateReq) {
	su.mu.RLock()
	defer su.mu.RUnlock()
	if su.stopped {
		return
	}

	select {
	case su.updateChan <- req:
	default:
	}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

// Value returns the current value of an integer metric.
func (su *StatsUpdater) Value(name string) int64 {
	if metric, ok := su.vars.Get(name).(*expvar.Int); ok {
		return metric.Value()
	}
	return 0
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	su.mu.Lock()
	defer su.mu.Unlock()
	if !su.stopped {
		su.stopped = true
		close(su.updateChan)
	}
}
