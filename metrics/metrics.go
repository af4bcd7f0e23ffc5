// Package metrics exposes poll, frame and publish counters plus the last
// decoded values as prometheus collectors. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"

	"github.com/blackandwhitetux/solafans-rs485/solafans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "solafans"

// Frame results
const (
	FrameOK       = "ok"
	FrameLength   = "length"
	FrameChecksum = "checksum"
)

type Metrics struct {
	frames     *prometheus.CounterVec
	pollErrors *prometheus.CounterVec
	publishes  *prometheus.CounterVec
	values     *prometheus.GaugeVec
	combined   *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Responses received, by validation result",
		}, []string{"controller", "result"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Poll cycles aborted by transport errors",
		}, []string{"controller"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Sensor updates sent to the sink, by result",
		}, []string{"result"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last decoded value per controller",
		}, []string{"controller", "field"}),
		combined: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "combined",
			Help:      "Last combined value across the controller pair",
		}, []string{"field"}),
	}
	reg.MustRegister(m.frames, m.pollErrors, m.publishes, m.values, m.combined)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Frame(controller, result string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(controller, result).Inc()
}

func (m *Metrics) PollError(controller string) {
	if m == nil {
		return
	}
	m.pollErrors.WithLabelValues(controller).Inc()
}

// Published counts the outcome of one batch of sensor updates.
func (m *Metrics) Published(ok, failed int) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues("ok").Add(float64(ok))
	m.publishes.WithLabelValues("error").Add(float64(failed))
}

func (m *Metrics) Reading(controller string, r *solafans.Reading) {
	if m == nil || r == nil {
		return
	}
	set := func(field string, v decimal.Decimal) {
		m.values.WithLabelValues(controller, field).Set(v.InexactFloat64())
	}
	set("pv_voltage", r.PVVoltageIn)
	set("battery_voltage", r.BatteryVoltage)
	set("charging_current", r.ChargingCurrent)
	set("internal_temperature", r.InternalTemperature)
	set("external_temperature", r.ExternalTemperature)
	set("energy_today", r.EnergyToday)
	set("total_energy", r.TotalEnergyGenerated)
}

func (m *Metrics) Combined(field string, v decimal.Decimal) {
	if m == nil {
		return
	}
	m.combined.WithLabelValues(field).Set(v.InexactFloat64())
}
