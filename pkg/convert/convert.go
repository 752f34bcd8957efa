package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/slidegate-dev/slidegate/pkg/classify"
)

// ErrBusy is returned when a submission is already in flight. The
// client enforces at most one upload in flight per instance.
var ErrBusy = errors.New("convert: a submission is already in flight")

// ErrNoFile is returned when Submit is called without a document.
var ErrNoFile = errors.New("convert: no file to submit")

// ErrUnknownOption is returned for an annotation option outside the
// enumerated set.
var ErrUnknownOption = errors.New("convert: unknown annotation option")

// Option is the annotation preference attached to a submission. At
// most one value is selected at a time.
type Option string

const (
	// WithAnnotations asks the backend to annotate generated slides.
	// This is the backend's default when the field is omitted.
	WithAnnotations Option = "with_annos"

	// WithoutAnnotations asks for bare slides.
	WithoutAnnotations Option = "without_annos"
)

// Valid reports whether the option is in the enumerated set. The empty
// option is valid and means "backend default".
func (o Option) Valid() bool {
	return o == "" || o == WithAnnotations || o == WithoutAnnotations
}

// Stage is a fixed progress checkpoint. The percentages are cosmetic.
type Stage struct {
	Name    string `json:"stage"`
	Percent int    `json:"percent"`
}

var (
	// StagePreparing is reported before the request is sent.
	StagePreparing = Stage{Name: "preparing", Percent: 10}

	// StageSent is reported once the backend has answered, before the
	// response is parsed.
	StageSent = Stage{Name: "sent", Percent: 60}

	// StageDone is reported after classification, success or not.
	StageDone = Stage{Name: "done", Percent: 100}
)

// Document is the file being submitted.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Config configures a Client.
type Config struct {
	// BackendURL is the base URL of the conversion backend.
	BackendURL string

	// HTTPClient overrides the transport. Nil uses a client with
	// DefaultTimeout.
	HTTPClient *http.Client

	// TracerName names the OpenTelemetry tracer. Empty uses
	// "slidegate/convert".
	TracerName string
}

// DefaultTimeout bounds a whole submission round trip. Conversion of a
// large bundle is slow, so this is generous.
const DefaultTimeout = 10 * time.Minute

// maxResponseBytes caps how much of a backend response is read while
// classifying it. An HTML error page fits comfortably.
const maxResponseBytes = 1 << 20

// Client relays submissions to the conversion backend.
type Client struct {
	backendURL string
	httpClient *http.Client
	tracer     trace.Tracer

	inFlight atomic.Bool
}

// NewClient creates a Client for the given backend.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	name := cfg.TracerName
	if name == "" {
		name = "slidegate/convert"
	}
	return &Client{
		backendURL: strings.TrimRight(cfg.BackendURL, "/"),
		httpClient: httpClient,
		tracer:     otel.Tracer(name),
	}
}

// Submit sends one document to the backend and returns the classified
// outcome. onStage, when non-nil, receives the fixed progress
// checkpoints in order; StageDone is always delivered, success or not.
//
// A transport failure is not an error return: it becomes a failed
// Outcome with a human-readable message, since the caller renders
// every result the same way. Error returns are reserved for caller
// mistakes (no file, unknown option, concurrent submission).
func (c *Client) Submit(ctx context.Context, doc Document, option Option, onStage func(Stage)) (classify.Outcome, error) {
	if doc.Body == nil || doc.Name == "" {
		return classify.Outcome{}, ErrNoFile
	}
	if !option.Valid() {
		return classify.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return classify.Outcome{}, ErrBusy
	}
	defer c.inFlight.Store(false)

	ctx, span := c.tracer.Start(ctx, "convert.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("convert.filename", doc.Name),
			attribute.Int64("convert.size_bytes", doc.Size),
			attribute.String("convert.option", string(option)),
		),
	)
	defer span.End()

	report := func(s Stage) {
		if onStage != nil {
			onStage(s)
		}
	}

	report(StagePreparing)

	req, err := c.buildRequest(ctx, doc, option)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		report(StageDone)
		return classify.Outcome{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		report(StageDone)
		return classify.Outcome{
			Success: false,
			Message: fmt.Sprintf("could not reach the conversion service: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	report(StageSent)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		report(StageDone)
		return classify.Outcome{
			Success: false,
			Message: fmt.Sprintf("failed reading the conversion response: %v", err),
		}, nil
	}

	classification := classify.Classify(resp.StatusCode, resp.Header, body)
	span.SetAttributes(
		attribute.Int("convert.status_code", resp.StatusCode),
		attribute.String("convert.classification", classification.Kind.String()),
	)
	if classification.Kind == classify.KindJSONSuccess {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, classification.Message)
	}

	report(StageDone)
	return classification.Outcome(), nil
}

// buildRequest serializes the document and option into a multipart
// body. The request content type is taken verbatim from the multipart
// writer: the boundary parameter is writer-generated and cannot be
// hand-specified correctly.
func (c *Client) buildRequest(ctx context.Context, doc Document, option Option) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", doc.Name)
	if err != nil {
		return nil, fmt.Errorf("convert: building form: %w", err)
	}
	if _, err := io.Copy(part, doc.Body); err != nil {
		return nil, fmt.Errorf("convert: reading document: %w", err)
	}

	if option != "" {
		if err := writer.WriteField("annotation_option", string(option)); err != nil {
			return nil, fmt.Errorf("convert: writing option field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("convert: finalizing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("convert: building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}
