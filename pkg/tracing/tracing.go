package tracing

import (
	"fmt"

	"github.com/opentracing/opentracing-go"
	jCfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"

	"trade_engine/pkg/logger"
)

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

type Config struct {
	Enabled bool
	Host    string
	Port    int
	// SampleRate is the fraction of traces kept; 0 keeps all of them.
	SampleRate float64
}

// InitTracer installs a jaeger tracer as the global opentracing tracer.
// When tracing is disabled the global no-op tracer is left in place.
func InitTracer(conf Config) (opentracing.Tracer, func(), error) {
	if !conf.Enabled {
		return opentracing.GlobalTracer(), func() {}, nil
	}

	sampler := &jCfg.SamplerConfig{Type: "const", Param: 1}
	if conf.SampleRate > 0 && conf.SampleRate < 1 {
		sampler = &jCfg.SamplerConfig{Type: "probabilistic", Param: conf.SampleRate}
	}
	cfg := &jCfg.Configuration{
		ServiceName: serviceName,
		Sampler:     sampler,
		Reporter: &jCfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
	}

	tracer, closer, err := cfg.NewTracer(jCfg.Metrics(metrics.NullFactory))
	if err != nil {
		return nil, nil, err
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, func() {
		if err := closer.Close(); err != nil {
			logger.Error("closing jaeger tracer: %v", err)
		}
	}, nil
}
