// Command uptime-lambda checks the shop websites on a schedule. Deployed as
// an AWS Lambda it serves invocations; anywhere else it checks once.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Sternrassler/shopkit/internal/app"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/Sternrassler/shopkit/pkg/uptime"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
)

// Response is returned to the Lambda runtime.
type Response struct {
	Healthy bool     `json:"healthy"`
	Failing []string `json:"failing,omitempty"`
	Report  string   `json:"report,omitempty"`
	RunID   string   `json:"run_id"`
	Checked int      `json:"checked"`
}

// handler runs one check. The event payload is ignored.
func handler(ctx context.Context, _ json.RawMessage) (Response, error) {
	cfg, err := config.Load(os.Getenv("SHOPKIT_CONFIG"))
	if err != nil {
		return Response{}, err
	}
	runID := app.SetupLogging(cfg.Logging, app.LogOptions{})

	report, err := app.CheckUptime(ctx, cfg, nil)
	if err != nil {
		log.Error().Err(err).Msg("Uptime check not run")
		return Response{}, err
	}
	return newResponse(runID, report), nil
}

func newResponse(runID string, report uptime.Report) Response {
	resp := Response{
		Healthy: report.Healthy(),
		Report:  report.HTML(),
		RunID:   runID,
		Checked: 1 + len(report.Secondaries),
	}
	for _, f := range report.Failures() {
		resp.Failing = append(resp.Failing, f.URL)
	}
	return resp
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handler)
		return
	}

	resp, err := handler(context.Background(), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	if !resp.Healthy {
		fmt.Println(resp.Report)
		os.Exit(1)
	}
}
