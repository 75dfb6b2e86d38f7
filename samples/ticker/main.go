// Command ticker runs a small form workflow against the console. Every line read from stdin is
// posted as a message, "form <message id> <form id> key=value..." submits a form.
package main

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yinan-symphony/symphony-wdk/activities"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/diag"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/feed"
	"github.com/yinan-symphony/symphony-wdk/messaging"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/samples"
	"github.com/yinan-symphony/symphony-wdk/swadl"
	"github.com/yinan-symphony/symphony-wdk/worker"
	"go.opentelemetry.io/otel/trace"
)

//go:embed ticker.yaml
var definition []byte

var addr = flag.String("addr", ":8080", "address of the diagnostics API")

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var tp trace.TracerProvider = trace.NewNoopTracerProvider()
	sdktp, err := samples.TracerProvider(ctx, "ticker sample")
	if err != nil {
		panic(err)
	}

	if sdktp != nil {
		tp = sdktp
		defer sdktp.Shutdown(context.Background())
	}

	store := samples.GetStore("ticker", backend.WithLogger(logger))
	defer store.Close()

	r := registry.New()
	client := messaging.WithRetries(samples.NewConsoleClient(logger), messaging.WithRetryLogger(logger))
	if err := activities.Register(r, client); err != nil {
		panic(err)
	}

	e := engine.New(r,
		engine.WithLogger(logger),
		engine.WithTracerProvider(tp),
		engine.WithStore(store),
		engine.WithRetention(time.Hour),
	)
	defer e.Close()

	def, err := swadl.ParseBytes(definition)
	if err != nil {
		panic(err)
	}

	if err := e.Deploy(ctx, def); err != nil {
		panic(err)
	}

	// Start diagnostic server
	go http.ListenAndServe(*addr, diag.NewServeMux(e, logger))

	src := feed.NewChannelSource(16)

	w := worker.New(src, e, &worker.Options{
		Pollers:           1,
		MaxParallelEvents: 4,
		PollingInterval:   100 * time.Millisecond,
		PollTimeout:       time.Second,
		Logger:            logger,
	})

	if err := w.Start(ctx); err != nil {
		panic(err)
	}

	go readConsole(ctx, src, logger)

	<-ctx.Done()
	src.Close()

	if err := w.WaitForCompletion(); err != nil {
		panic("could not stop worker: " + err.Error())
	}
}

func readConsole(ctx context.Context, src *feed.ChannelSource, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		ev, err := parseLine(scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}

		if err := src.Publish(ctx, ev); err != nil {
			logger.Error("Could not publish event", "error", err)
			return
		}
	}
}

func parseLine(line string) (*event.Event, error) {
	initiator := &event.User{UserID: 1, Username: os.Getenv("USER")}

	fields := strings.Fields(line)
	if len(fields) > 0 && fields[0] == "form" {
		if len(fields) < 3 {
			return nil, errors.New("usage: form <message id> <form id> key=value...")
		}

		values := make(map[string]any)
		for _, kv := range fields[3:] {
			k, v, _ := strings.Cut(kv, "=")
			values[k] = v
		}

		return &event.Event{
			ID:        uuid.NewString(),
			Type:      "SYMPHONYELEMENTSACTION",
			Timestamp: time.Now(),
			Initiator: initiator,
			Form: &event.FormReply{
				MessageID: fields[1],
				FormID:    fields[2],
				Values:    values,
			},
		}, nil
	}

	return &event.Event{
		ID:        uuid.NewString(),
		Type:      "MESSAGESENT",
		Timestamp: time.Now(),
		Initiator: initiator,
		Message: &event.Message{
			MessageID: uuid.NewString(),
			Text:      line,
			Stream:    &event.Stream{StreamID: "console"},
		},
	}, nil
}
