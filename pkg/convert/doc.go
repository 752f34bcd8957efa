// Package convert submits documents to the conversion backend and
// interprets its responses.
//
// The backend is an opaque HTTP collaborator: one POST /upload with a
// multipart body, one JSON envelope back. Progress reporting is a UX
// affordance, not telemetry — the backend offers no byte-level
// progress channel, so the client advances through fixed checkpoints
// instead. Do not mistake the stages for a real transfer metric.
//
//	client := convert.NewClient(convert.Config{BackendURL: url})
//	outcome, err := client.Submit(ctx, doc, convert.WithAnnotations, func(s convert.Stage) {
//	    hub.NotifyProgress(s)
//	})
package convert
