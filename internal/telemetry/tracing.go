// Package telemetry はOpenTelemetryのトレース出力とコンテキスト伝播を設定する。
//
// スパンはmiddleware.NewTracingMiddlewareがリクエスト単位で作成する。
// Web層からAPI層への呼び出しにはW3C Trace Context（traceparent）を載せ、
// 両層のスパンを1つのトレースとしてつなげる。
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config はトレース出力の設定。
type Config struct {
	// ServiceName はリソース属性service.nameに設定する名前。
	ServiceName string
	// Endpoint はOTLP gRPCの送信先（例: "otel-collector:4317"）。空の場合はスパンを出力しない。
	Endpoint string
	// Insecure はTLSを使わずに送信する。
	Insecure bool
}

// Propagator はサービス間で使うコンテキスト伝播方式を返す。
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// NewTracerProvider はサービス名のリソースを持つTracerProviderを生成する。
// 上流でサンプリングされたトレースは常に記録する。
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// Setup はグローバルのプロパゲーターとTracerProviderを設定する。
// 送信先が未設定でもプロパゲーターは設定し、受け取ったtraceparentを下流へ引き継ぐ。
// 戻り値のshutdownは終了時に呼び出し、未送信のスパンを送り切る。
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(Propagator())

	if cfg.Endpoint == "" {
		slog.Info("trace export disabled", slog.String("service", cfg.ServiceName))
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := NewTracerProvider(cfg.ServiceName, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	slog.Info("trace export enabled",
		slog.String("service", cfg.ServiceName),
		slog.String("endpoint", cfg.Endpoint),
	)
	return tp.Shutdown, nil
}
