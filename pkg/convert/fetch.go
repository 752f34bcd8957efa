package convert

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is a generated artifact streamed from the backend.
type Result struct {
	// Filename is taken from the Content-Disposition header when
	// present, else from the last path segment of the location.
	Filename string

	// ContentType is the backend's declared type for the artifact.
	ContentType string

	// Size is the declared content length, -1 when unknown.
	Size int64

	// Body streams the artifact. The caller must close it.
	Body io.ReadCloser
}

// FetchResult retrieves a generated artifact from the backend by the
// result location it returned for a successful submission.
func (c *Client) FetchResult(ctx context.Context, location string) (*Result, error) {
	if location == "" || !strings.HasPrefix(location, "/") {
		return nil, fmt.Errorf("convert: invalid result location %q", location)
	}

	ctx, span := c.tracer.Start(ctx, "convert.fetch_result",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("convert.result_location", location)),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.backendURL+location, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("convert: building result request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("convert: fetching result: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("convert: result fetch returned HTTP %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &Result{
		Filename:    resultFilename(resp.Header.Get("Content-Disposition"), location),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func resultFilename(disposition, location string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return path.Base(location)
}
