package classify

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"
)

// Kind identifies which classification variant was selected.
// Exactly one Kind is chosen per response.
type Kind int

const (
	// KindJSONSuccess is a 2xx response carrying a JSON payload whose
	// success flag is affirmative.
	KindJSONSuccess Kind = iota

	// KindJSONError is a JSON payload that declares failure, either via
	// an error status or a non-affirmative success flag.
	KindJSONError

	// KindHTMLError is an HTML document received where JSON was
	// expected. Usually a proxy or error-page interceptor speaking on
	// the backend's behalf.
	KindHTMLError

	// KindOpaqueError is a response that could not be interpreted as
	// either JSON or HTML. The message falls back to transport status
	// text.
	KindOpaqueError
)

// String returns the kind name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindJSONSuccess:
		return "json_success"
	case KindJSONError:
		return "json_error"
	case KindHTMLError:
		return "html_error"
	case KindOpaqueError:
		return "opaque_error"
	default:
		return "unknown"
	}
}

// Classification is the tagged result of interpreting one response.
type Classification struct {
	Kind Kind

	// Message is always human-readable, whichever variant was chosen.
	Message string

	// ResultLocation is the server-provided path to the generated
	// artifact. Set only for KindJSONSuccess, and only when the payload
	// included one.
	ResultLocation string
}

// Outcome is the collapsed form consumed by the presenter: one per
// submission attempt, discarded after display.
type Outcome struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResultLocation string `json:"result_url,omitempty"`
}

// Outcome collapses the variant into the success/failure shape the
// notification layer renders.
func (c Classification) Outcome() Outcome {
	return Outcome{
		Success:        c.Kind == KindJSONSuccess,
		Message:        c.Message,
		ResultLocation: c.ResultLocation,
	}
}

// payload is the backend's JSON envelope. Error responses may carry
// either "error" or "message"; success responses carry "success",
// "message" and an optional "result_url".
type payload struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	ResultURL string `json:"result_url"`
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Classify interprets a single HTTP response from the conversion
// backend. Content type is consulted first; when it is absent or
// ambiguous the body prefix is sniffed for an HTML document marker.
func Classify(status int, header http.Header, body []byte) Classification {
	ct := contentType(header)

	if status < 200 || status >= 300 {
		return classifyError(status, ct, body)
	}
	return classifySuccess(ct, body)
}

func classifyError(status int, ct string, body []byte) Classification {
	if isHTML(ct) {
		if title := extractTitle(body); title != "" {
			return Classification{Kind: KindHTMLError, Message: title}
		}
		return Classification{
			Kind:    KindHTMLError,
			Message: fmt.Sprintf("server returned HTTP %d", status),
		}
	}

	var p payload
	if err := json.Unmarshal(body, &p); err == nil {
		if msg := firstNonEmpty(p.Error, p.Message); msg != "" {
			return Classification{Kind: KindJSONError, Message: msg}
		}
	}

	if text := http.StatusText(status); text != "" {
		return Classification{Kind: KindOpaqueError, Message: text}
	}
	return Classification{
		Kind:    KindOpaqueError,
		Message: fmt.Sprintf("HTTP %d error", status),
	}
}

func classifySuccess(ct string, body []byte) Classification {
	if !isJSON(ct) {
		if sniffHTML(body) {
			return Classification{
				Kind:    KindHTMLError,
				Message: "server returned an HTML document instead of JSON",
			}
		}
		return Classification{
			Kind:    KindOpaqueError,
			Message: fmt.Sprintf("unexpected response content type %q", ct),
		}
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		// Declared JSON but does not parse. A 200 with the wrong body
		// shape is still a failure.
		if sniffHTML(body) {
			return Classification{
				Kind:    KindHTMLError,
				Message: "server returned an HTML document instead of JSON",
			}
		}
		return Classification{
			Kind:    KindOpaqueError,
			Message: "server returned malformed JSON",
		}
	}

	if !p.Success {
		msg := firstNonEmpty(p.Message, p.Error)
		if msg == "" {
			msg = "processing failed"
		}
		return Classification{Kind: KindJSONError, Message: msg}
	}

	return Classification{
		Kind:           KindJSONSuccess,
		Message:        p.Message,
		ResultLocation: p.ResultURL,
	}
}

// contentType returns the media type without parameters, lowercased.
// An unparseable header is passed through raw so it can be reported
// verbatim.
func contentType(header http.Header) string {
	raw := header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mt
}

func isHTML(ct string) bool {
	return ct == "text/html" || ct == "application/xhtml+xml"
}

func isJSON(ct string) bool {
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// sniffHTML reports whether the body, after trimming whitespace, opens
// with an HTML document marker or any opening tag.
func sniffHTML(body []byte) bool {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(s, "<")
}

// extractTitle pulls the text of the first <title> element, if any.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
