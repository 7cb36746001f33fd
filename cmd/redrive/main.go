package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/raywall/form-builder-service/pkg/app"
)

func main() {
	drain := flag.Bool("drain", false, "encerra quando a DLQ estiver vazia")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *drain); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run reaplica os registros da fila de mensagens mortas dos reatores.
func run(ctx context.Context, drain bool, opts ...app.Option) error {
	a, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Redriver()
	if err != nil {
		return err
	}
	r.Start(ctx, drain)
	return nil
}
