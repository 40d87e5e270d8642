package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var kernelCardPresent = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ucmd",
	Subsystem: "asound",
	Name:      "card_present",
	Help:      "Sound cards listed by the kernel",
}, []string{"number", "id"})

// SetKernelCardPresent marks a kernel sound card as present.
func SetKernelCardPresent(number int, id string) {
	kernelCardPresent.WithLabelValues(strconv.Itoa(number), id).Set(1)
}

// DeleteKernelCard removes a kernel sound card series.
func DeleteKernelCard(number int, id string) {
	kernelCardPresent.DeleteLabelValues(strconv.Itoa(number), id)
}
