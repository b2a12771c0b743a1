package console

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubmitsTotal counts session submits by session kind and result.
var SubmitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueprofile_console_submits_total",
		Help: "Total number of editor submits by session kind and result",
	},
	[]string{"kind", "result"},
)
