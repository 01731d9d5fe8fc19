package metrics

import (
	"errors"

	"github.com/kilianp07/washcrew/core/factory"
	coremetrics "github.com/kilianp07/washcrew/core/metrics"
)

type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.PlanSink, error) {
		return coremetrics.NopSink{}, nil
	})

	// The listen address belongs to the serve command; the sink only registers collectors.
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.PlanSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterSink("influx", factory.Typed(func(c influxConf) (coremetrics.PlanSink, error) {
		if c.URL == "" || c.Bucket == "" {
			return nil, errors.New("influx sink requires url and bucket")
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	}))
}
