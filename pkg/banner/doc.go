// Package banner manages the transient notification banners shown on
// the upload page.
//
// The presenter owns all banner state explicitly rather than leaving
// it ambient in the page: at most one banner exists per class, error
// banners persist until dismissed or replaced, and success banners
// auto-expire after a fixed delay. Every transition is forwarded to a
// Notifier so the web layer can emit it to connected pages as an
// event:
//
//	p := banner.NewPresenter(banner.Config{Notify: hub.NotifyBanner})
//	p.Error(banner.ClassAlert, "upload failed: file too large")
//	p.Success("Done", "/r/1")
package banner
