package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/raywall/form-builder-service/pkg/app"
)

var (
	// Variáveis injetáveis para mocking
	localStarter  = (*app.App).RunLocal
	lambdaStarter = func(handler interface{}) { lambda.Start(handler) }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run contém a lógica principal testável
func run(ctx context.Context, opts ...app.Option) error {
	a, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Config.IsLocal() {
		return localStarter(a, ctx)
	}
	lambdaStarter(a.Server.HandleLambda)
	return nil
}
