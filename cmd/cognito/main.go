package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/raywall/form-builder-service/pkg/app"
	"github.com/raywall/form-builder-service/pkg/handler"
)

var lambdaStarter = func(handler interface{}) { lambda.Start(handler) }

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(ctx context.Context, opts ...app.Option) error {
	a, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	lambdaStarter(trigger(a.Handler))
	return nil
}

// trigger atende os gatilhos do user pool ligados a esta função, escolhendo
// o handler pelo prefixo de triggerSource.
func trigger(h *handler.Handler) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var head events.CognitoEventUserPoolsHeader
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("evento do cognito inválido: %w", err)
		}

		switch {
		case strings.HasPrefix(head.TriggerSource, "PostConfirmation_"):
			var ev events.CognitoEventUserPoolsPostConfirmation
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, err
			}
			return h.PostConfirmation(ctx, ev)

		case strings.HasPrefix(head.TriggerSource, "CustomMessage_"):
			var ev events.CognitoEventUserPoolsCustomMessage
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, err
			}
			return h.CustomMessage(ctx, ev)
		}
		return nil, fmt.Errorf("gatilho não suportado: %s", head.TriggerSource)
	}
}
