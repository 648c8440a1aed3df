package httpclients

import (
	"context"
	"time"

	"tutor-server/services/chat-api/internal/infrastructure/logger"

	"resty.dev/v3"
)

// Context keys threaded through each outgoing request so the response
// middleware can reconstruct the full exchange for logging.
type RequestID struct{}
type HTTPClientStartsAt struct{}
type HTTPClientRequestBody struct{}

// NewClient builds a resty client that debug-logs every exchange with
// the upstream, tagged with clientName.
func NewClient(clientName string) *resty.Client {
	client := resty.New()

	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		ctx := context.WithValue(r.Context(), HTTPClientStartsAt{}, time.Now())
		ctx = context.WithValue(ctx, HTTPClientRequestBody{}, r.Body)
		r.SetContext(ctx)
		return nil
	})

	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()

		requestID, _ := ctx.Value(RequestID{}).(string)
		startedAt, _ := ctx.Value(HTTPClientStartsAt{}).(time.Time)

		var responseBody any
		if !r.Request.DoNotParseResponse {
			responseBody = r.Result()
		}

		lg := logger.GetLogger()
		lg.Debug().
			Str("request_id", requestID).
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("path", r.Request.RawRequest.URL.Path).
			Str("query", r.Request.RawRequest.URL.RawQuery).
			Interface("req_body", ctx.Value(HTTPClientRequestBody{})).
			Interface("resp_body", responseBody).
			Dur("latency", time.Since(startedAt)).
			Msg("HTTP client request")
		return nil
	})

	return client
}
