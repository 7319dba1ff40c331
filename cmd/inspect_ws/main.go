package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/fanout"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

func main() {
	addr := flag.String("addr", "localhost:8766", "fanout server host:port")
	eventKey := flag.String("event", fanout.AllEvents, "event key to subscribe to, or * for all")
	pretty := flag.Bool("pretty", false, "pretty-print payloads")
	flag.Parse()

	telemetry.Init(telemetry.ParseLogLevel("info"))

	bus := events.NewBus()
	show := func(e events.Event) error {
		var (
			data []byte
			err  error
		)
		if *pretty {
			data, err = json.MarshalIndent(e.Payload, "", "  ")
		} else {
			data, err = json.Marshal(e.Payload)
		}
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		fmt.Printf("--- %s event=%s id=%s ts=%s bytes=%d ---\n%s\n\n",
			e.Type, e.EventKey, e.ID, e.Timestamp.Format("15:04:05.000"), len(data), data)
		return nil
	}
	bus.SubscribeAll(show)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry.Infof("Subscribing to %s at %s", *eventKey, *addr)
	fanout.NewClient(*addr, *eventKey, bus).ConnectWithRetry(ctx)
	fmt.Fprintln(os.Stderr, "bye")
}
