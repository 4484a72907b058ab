package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fanoutTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_fanout_total",
		Help: "Fan-out notification writes by resource type and result",
	},
	[]string{"type", "result"},
)
