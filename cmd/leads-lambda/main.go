package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/leadsync/cmd/mainconfig"
	"github.com/wolfman30/leadsync/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadsync/internal/config"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// drainer waits for fire-and-forget work started by a request.
type drainer interface {
	Wait(ctx context.Context) error
}

type function struct {
	handler http.Handler
	tasks   drainer
	logger  *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, logger, bootstrap.Options{
		AWSLoader:   mainconfig.Loader(cfg),
		VerifyRedis: true,
	})
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	fn := &function{handler: app.Handler, tasks: app.Tasks, logger: logger}
	lambda.Start(fn.handle)
}

// handle serves one API Gateway event through the HTTP router. The sandbox
// freezes after return, so background tasks are drained before responding.
func (f *function) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if f.tasks != nil {
		if err := f.tasks.Wait(ctx); err != nil {
			f.logger.Warn("background tasks still running at invocation end", "error", err)
		}
	}

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rr.Code,
		Body:       rr.Body.String(),
		Headers:    map[string]string{},
	}
	for k, v := range rr.Header() {
		if len(v) > 0 {
			out.Headers[strings.ToLower(k)] = strings.Join(v, ",")
		}
	}
	return out, nil
}

func toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "" {
		path = "/"
	}
	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}

	req := httptest.NewRequest(method, target, strings.NewReader(string(body))).WithContext(ctx)
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
