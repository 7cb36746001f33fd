package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/handler"
	"github.com/raywall/form-builder-service/pkg/logger"
)

// Claims emitidas pelo autorizador JWT do API Gateway.
const (
	ClaimUsername = "cognito:username"
	ClaimSubject  = "sub"
	ClaimEmail    = "email"
)

// ClaimsCaller lê o chamador das claims já verificadas pelo autorizador.
func ClaimsCaller(req events.APIGatewayV2HTTPRequest) authz.Caller {
	auth := req.RequestContext.Authorizer
	if auth == nil || auth.JWT == nil {
		return authz.Caller{}
	}
	claims := auth.JWT.Claims
	id := claims[ClaimUsername]
	if id == "" {
		id = claims[ClaimSubject]
	}
	return authz.Caller{UserID: id, Email: claims[ClaimEmail]}
}

// HandleLambda atende um evento do API Gateway (HTTP API, payload 2.0)
// usando as mesmas rotas do servidor local.
func (s *Server) HandleLambda(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	start := time.Now()

	// O API Gateway entrega os cabeçalhos em minúsculas
	corrID := req.Headers[HeaderCorrelationID]
	if corrID == "" {
		corrID = s.newID()
	}
	ctx, reqLogger := logger.WithCorrelationID(ctx, s.logger, corrID)

	method := req.RequestContext.HTTP.Method
	path := req.RawPath
	if path == "" {
		path = req.RequestContext.HTTP.Path
	}

	resp := s.routeLambda(ctx, method, path, req)

	header := http.Header{}
	corsHeaders(header)
	header.Set(HeaderCorrelationID, corrID)
	header.Set(HeaderLatency, strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	for k := range header {
		resp.Headers[k] = header.Get(k)
	}

	reqLogger.Info().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("lambda request completed")

	return resp, nil
}

func (s *Server) routeLambda(ctx context.Context, method, path string, req events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	if method == http.MethodOptions {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNoContent}
	}

	r, err := http.NewRequestWithContext(ctx, method, path, nil)
	if err != nil {
		return lambdaJSON(ctx, http.StatusNotFound, handler.Message{Message: msgRouteNotFound})
	}

	var match mux.RouteMatch
	if !s.router.Match(r, &match) || match.Route == nil {
		if match.MatchErr == mux.ErrMethodMismatch {
			return lambdaJSON(ctx, http.StatusMethodNotAllowed, handler.Message{Message: msgMethodNotAllowed})
		}
		return lambdaJSON(ctx, http.StatusNotFound, handler.Message{Message: msgRouteNotFound})
	}
	rt, ok := s.routes[match.Route.GetName()]
	if !ok {
		return lambdaJSON(ctx, http.StatusNotFound, handler.Message{Message: msgRouteNotFound})
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		if body, err = base64.StdEncoding.DecodeString(req.Body); err != nil {
			return lambdaJSON(ctx, http.StatusBadRequest, handler.Message{Message: "invalid request body"})
		}
	}

	status, out := s.invoke(ctx, rt, match.Vars, ClaimsCaller(req), body)
	return lambdaJSON(ctx, status, out)
}

func lambdaJSON(ctx context.Context, status int, body any) events.APIGatewayV2HTTPResponse {
	b, err := json.Marshal(body)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("erro ao serializar resposta")
		status, b = http.StatusInternalServerError, []byte(`{"message":"internal server error"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}
