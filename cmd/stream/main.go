package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/raywall/form-builder-service/pkg/app"
)

var lambdaStarter = func(handler interface{}) { lambda.Start(handler) }

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run registra o consumidor do DynamoDB Stream da tabela.
func run(ctx context.Context, opts ...app.Option) error {
	a, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	lambdaStarter(a.Dispatcher.HandleEvent)
	return nil
}
