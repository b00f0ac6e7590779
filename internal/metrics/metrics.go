// Package metrics собирает метрики Prometheus маркетплейса.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты попытки покупки.
const (
	ResultCompleted         = "completed"
	ResultPending           = "pending"
	ResultNotFound          = "not_found"
	ResultInsufficientFunds = "insufficient_funds"
	ResultRejected          = "rejected"
	ResultError             = "error"
)

// Collector регистрирует и обновляет метрики сервиса.
type Collector struct {
	orders        *prometheus.CounterVec
	swept         *prometheus.CounterVec
	entries       *prometheus.GaugeVec
	httpResponses *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickers_orders_total",
			Help: "Order attempts by payment method and outcome.",
		}, []string{"method", "result"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickers_credstore_swept_total",
			Help: "Expired credential store entries removed by the reaper.",
		}, []string{"kind"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pickers_credstore_entries",
			Help: "Credential store entries after the last sweep.",
		}, []string{"kind"}),
		httpResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickers_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status"}),
	}

	reg.MustRegister(c.orders, c.swept, c.entries, c.httpResponses)

	return c
}

// RecordOrder учитывает попытку покупки.
func (c *Collector) RecordOrder(method, result string) {
	if c == nil {
		return
	}
	c.orders.WithLabelValues(method, result).Inc()
}

// RecordSweep учитывает результат чистки хранилища учётных данных.
func (c *Collector) RecordSweep(codesRemoved, tokensRemoved, codesLeft, tokensLeft int) {
	if c == nil {
		return
	}
	c.swept.WithLabelValues("code").Add(float64(codesRemoved))
	c.swept.WithLabelValues("token").Add(float64(tokensRemoved))
	c.entries.WithLabelValues("code").Set(float64(codesLeft))
	c.entries.WithLabelValues("token").Set(float64(tokensLeft))
}

// RecordHTTPStatus учитывает код ответа HTTP.
func (c *Collector) RecordHTTPStatus(status int) {
	if c == nil {
		return
	}
	c.httpResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Handler возвращает обработчик для сбора метрик Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
