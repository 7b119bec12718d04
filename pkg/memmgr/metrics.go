// Copyright The GridSolve Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memmgr

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	routeHtoH = "host-to-host"
	routeHtoD = "host-to-device"
	routeDtoH = "device-to-host"
	routeDtoD = "device-to-device"
)

// metrics is the manager's accounting instrumentation. The collectors
// are always live; they only show up in an exposition endpoint if the
// manager is constructed with WithMetrics.
type metrics struct {
	hostAllocBytes   prometheus.Counter
	deviceAllocBytes prometheus.Counter
	registrations    prometheus.Gauge
	copyBytes        *prometheus.CounterVec
	copies           *prometheus.CounterVec
}

// WithMetrics is an option registering the manager's collectors with the
// given prometheus registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

func newMetrics() *metrics {
	return &metrics{
		hostAllocBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memmgr",
			Name:      "host_allocated_bytes_total",
			Help:      "Total number of bytes allocated in the host memory space.",
		}),
		deviceAllocBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memmgr",
			Name:      "device_allocated_bytes_total",
			Help:      "Total number of bytes allocated in the device memory space.",
		}),
		registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memmgr",
			Name:      "registered_buffers",
			Help:      "Number of currently registered logical buffers.",
		}),
		copyBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memmgr",
			Name:      "copied_bytes_total",
			Help:      "Total number of bytes copied, by copy route.",
		}, []string{"route"}),
		copies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memmgr",
			Name:      "copies_total",
			Help:      "Total number of copy operations, by copy route.",
		}, []string{"route"}),
	}
}

func (mtr *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		mtr.hostAllocBytes,
		mtr.deviceAllocBytes,
		mtr.registrations,
		mtr.copyBytes,
		mtr.copies,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (mtr *metrics) hostAlloc(n int) {
	mtr.hostAllocBytes.Add(float64(n))
}

func (mtr *metrics) deviceAlloc(n int) {
	mtr.deviceAllocBytes.Add(float64(n))
}

func (mtr *metrics) registered() {
	mtr.registrations.Inc()
}

func (mtr *metrics) unregistered() {
	mtr.registrations.Dec()
}

func (mtr *metrics) copied(route string, n int) {
	mtr.copies.WithLabelValues(route).Inc()
	mtr.copyBytes.WithLabelValues(route).Add(float64(n))
}
