// Package classify interprets responses from the conversion backend.
//
// The backend sits behind reverse proxies and error-page interceptors
// that may substitute an HTML error document for the JSON the client
// expects. Classify treats every response as untrusted until both the
// declared content type and the body shape are confirmed, turning the
// classic "unexpected token '<'" parse failure into an actionable
// message.
//
// Classify is a pure function of (status, headers, body). It performs
// no I/O, which keeps the full decision table testable without a
// network or a DOM:
//
//	c := classify.Classify(resp.StatusCode, resp.Header, body)
//	outcome := c.Outcome()
//	if outcome.Success {
//	    // navigate to outcome.ResultLocation
//	}
package classify
