// Package samples holds the shared setup of the runnable samples.
package samples

import (
	"context"
	"flag"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/backend/memory"
	"github.com/yinan-symphony/symphony-wdk/backend/mysql"
	"github.com/yinan-symphony/symphony-wdk/backend/postgres"
	rs "github.com/yinan-symphony/symphony-wdk/backend/redis"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlite"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	storeFlag = flag.String("store", "memory", "instance store to use: memory, sqlite, mysql, postgres, redis")
	traceFlag = flag.String("trace", "", "trace exporter: stdout, or an OTLP/HTTP endpoint like localhost:4318")
)

// GetStore returns the store selected with -store. Call flag.Parse first.
func GetStore(name string, opt ...backend.BackendOption) backend.Store {
	switch *storeFlag {
	case "memory":
		return memory.NewMemoryStore(opt...)

	case "sqlite":
		return sqlite.NewSqliteStore(name+".sqlite", sqlstore.WithBackendOptions(opt...))

	case "mysql":
		return mysql.NewMysqlStore("localhost", 3306, "root", "root", name, sqlstore.WithBackendOptions(opt...))

	case "postgres":
		return postgres.NewPostgresStore("localhost", 5432, "root", "root", name, sqlstore.WithBackendOptions(opt...))

	case "redis":
		rclient := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{"localhost:6379"},
			Password:     "RedisPassw0rd",
			DB:           0,
			WriteTimeout: time.Second * 30,
			ReadTimeout:  time.Second * 30,
		})

		s, err := rs.NewRedisStore(rclient, rs.WithBackendOptions(opt...), rs.WithAutoExpiration(time.Hour))
		if err != nil {
			panic(err)
		}

		return s

	default:
		panic("unknown store " + *storeFlag)
	}
}

// TracerProvider returns the tracer provider selected with -trace, nil when tracing is off.
// Shut it down before exiting to flush pending spans.
func TracerProvider(ctx context.Context, service string) (*trace.TracerProvider, error) {
	if *traceFlag == "" {
		return nil, nil
	}

	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(service),
		semconv.ServiceVersionKey.String("v0.1.0"),
		attribute.String("environment", "sample"),
	)

	if *traceFlag == "stdout" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}

		return trace.NewTracerProvider(trace.WithSyncer(exp), trace.WithResource(r)), nil
	}

	exp, err := otlptrace.New(ctx, otlptracehttp.NewClient(otlptracehttp.WithEndpoint(*traceFlag), otlptracehttp.WithInsecure()))
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(trace.WithBatcher(exp), trace.WithResource(r)), nil
}
