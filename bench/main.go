package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/feed"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	mi "github.com/yinan-symphony/symphony-wdk/internal/metrics"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/samples"
	"github.com/yinan-symphony/symphony-wdk/worker"
)

var timeout = flag.Duration("timeout", time.Second*30, "Timeout for the benchmark run")
var runs = flag.Int("runs", 100, "Number of instances to start")
var fanOut = flag.Int("fanout", 2, "Number of parallel branches per instance")
var activities = flag.Int("activities", 2, "Number of activities per branch")
var resultSize = flag.Int("resultsize", 100, "Size of activity output payload in bytes")
var parallel = flag.Int("parallel", 16, "Number of events handled in parallel")
var format = flag.String("format", "text", "Output format. Supported formats are:\n- text\n- csv\n")

func main() {
	flag.Parse()

	if *fanOut < 1 || *activities < 1 {
		log.Fatal("fanout and activities must be at least 1")
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(*timeout).Add(time.Second*5))
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mm := mi.NewRecorder()

	s := samples.GetStore("bench", backend.WithLogger(logger))
	defer s.Close()

	r := registry.New()
	if err := r.RegisterActivityFunc(kindWork, work(*resultSize)); err != nil {
		panic(err)
	}

	e := engine.New(r,
		engine.WithLogger(logger),
		engine.WithMetrics(mm),
		engine.WithStore(s),
	)
	defer e.Close()

	if err := e.Deploy(ctx, benchWorkflow(*fanOut, *activities)); err != nil {
		panic(err)
	}

	src := feed.NewChannelSource(*parallel)

	wo := worker.DefaultOptions
	wo.MaxParallelEvents = *parallel
	wo.Logger = logger
	w := worker.New(src, e, &wo)

	wctx, stop := context.WithCancel(ctx)
	if err := w.Start(wctx); err != nil {
		panic(err)
	}

	start := time.Now()
	for i := 0; i < *runs; i++ {
		err := src.Publish(ctx, &event.Event{
			ID:   uuid.NewString(),
			Type: "MESSAGESENT",
			Message: &event.Message{
				MessageID: fmt.Sprintf("run-%d", i),
				Text:      "/bench",
				Stream:    &event.Stream{StreamID: "bench"},
			},
		})
		if err != nil {
			panic(err)
		}
	}

	for mm.Count(metrickeys.InstanceFinished) < float64(*runs) {
		select {
		case <-ctx.Done():
			panic(fmt.Errorf("only %v of %d instances finished: %w", mm.Count(metrickeys.InstanceFinished), *runs, ctx.Err()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	end := time.Now()

	stop()
	if err := w.WaitForCompletion(); err != nil {
		panic(err)
	}

	switch *format {
	case "text":
		log.Println("Ran", *runs, "instances in", end.Sub(start).Seconds(), "seconds")
		printMetrics(os.Stdout, mm)

	case "csv":
		fmt.Printf(
			"%v,%d,%d,%d,%d\n",
			end.Sub(start).Seconds(), *runs, *fanOut, *activities, *resultSize)
	}
}
