package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/cmd/mainconfig"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/app/bootstrap"
	appconfig "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/relay"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// eventHandler is satisfied by *relay.Handler.
type eventHandler interface {
	HandleEvent(ctx context.Context, signature string, body []byte) (int, string)
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).With("component", "relay-lambda")

	ctx := context.Background()
	deps := bootstrap.Deps{Logger: logger}
	if mainconfig.NeedsAWS(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		deps.S3 = mainconfig.NewS3Client(awsCfg, cfg)
		if cfg.EmailProvider == "ses" {
			deps.SES = mainconfig.NewSESClient(awsCfg)
		}
	}

	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, deps)
	if err != nil {
		logger.Error("failed to build lead pipeline", "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp := handle(ctx, pipeline.Relay, evt)
		// the execution environment may freeze once we return
		pipeline.Service.Wait()
		return resp, nil
	})
}

func handle(ctx context.Context, h eventHandler, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return textResponse(http.StatusOK, "ok")
	}
	// direct invocations carry no HTTP context
	if method != "" && method != http.MethodPost {
		return textResponse(http.StatusMethodNotAllowed, "method not allowed")
	}

	body, err := decodeBody(evt)
	if err != nil {
		return textResponse(http.StatusBadRequest, "invalid payload")
	}

	status, text := h.HandleEvent(ctx, headerValue(evt.Headers, relay.SignatureHeader), body)
	return textResponse(status, text)
}

func textResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"content-type": "text/plain; charset=utf-8"},
	}
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

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
