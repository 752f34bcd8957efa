package banner_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slidegate-dev/slidegate/pkg/banner"
)

// recorder captures banner transitions for verification.
type recorder struct {
	mu     sync.Mutex
	events []event
}

type event struct {
	class banner.Class
	b     *banner.Banner
}

func (r *recorder) notify(class banner.Class, b *banner.Banner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{class, b})
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) at(i int) event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

func TestSecondErrorReplacesFirst(t *testing.T) {
	p := banner.NewPresenter(banner.Config{})
	defer p.Close()

	p.Error(banner.ClassAlert, "first failure")
	p.Error(banner.ClassAlert, "second failure")

	if got := p.ActiveCount(); got != 1 {
		t.Fatalf("expected exactly 1 banner, got %d", got)
	}
	b := p.Active(banner.ClassAlert)
	if b == nil || b.Message != "second failure" {
		t.Errorf("expected the second banner to be active, got %+v", b)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	p := banner.NewPresenter(banner.Config{})
	defer p.Close()

	p.Error(banner.ClassSizeError, "too big")
	p.Error(banner.ClassAlert, "upload failed")

	if got := p.ActiveCount(); got != 2 {
		t.Fatalf("expected 2 banners in distinct classes, got %d", got)
	}
}

func TestErrorBannerPersistsUntilDismissed(t *testing.T) {
	p := banner.NewPresenter(banner.Config{SuccessTTL: 10 * time.Millisecond})
	defer p.Close()

	p.Error(banner.ClassAlert, "boom")
	time.Sleep(30 * time.Millisecond)

	b := p.Active(banner.ClassAlert)
	if b == nil {
		t.Fatal("error banner must not auto-expire")
	}
	if !b.Dismissible {
		t.Error("error banner must carry a dismiss control")
	}

	p.Dismiss(banner.ClassAlert)
	if p.Active(banner.ClassAlert) != nil {
		t.Error("banner still active after dismissal")
	}
}

func TestSuccessBannerAutoExpires(t *testing.T) {
	rec := &recorder{}
	p := banner.NewPresenter(banner.Config{
		SuccessTTL: 20 * time.Millisecond,
		Notify:     rec.notify,
	})
	defer p.Close()

	p.Success("Done")

	if b := p.Active(banner.ClassAlert); b == nil || b.Level != banner.LevelSuccess {
		t.Fatalf("expected active success banner, got %+v", b)
	}

	deadline := time.Now().Add(time.Second)
	for p.Active(banner.ClassAlert) != nil {
		if time.Now().After(deadline) {
			t.Fatal("success banner did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// show + clear
	if rec.len() != 2 {
		t.Fatalf("expected 2 notifications, got %d", rec.len())
	}
	if rec.at(1).b != nil {
		t.Error("expiry notification should carry a nil banner")
	}
}

func TestReplacementCancelsStaleExpiry(t *testing.T) {
	p := banner.NewPresenter(banner.Config{SuccessTTL: 20 * time.Millisecond})
	defer p.Close()

	p.Success("first")
	p.Error(banner.ClassAlert, "replacement")

	// The first banner's timer must not remove the replacement.
	time.Sleep(60 * time.Millisecond)

	b := p.Active(banner.ClassAlert)
	if b == nil || b.Message != "replacement" {
		t.Fatalf("replacement banner was removed by a stale timer: %+v", b)
	}
}

func TestMultiLineMessagePreserved(t *testing.T) {
	p := banner.NewPresenter(banner.Config{})
	defer p.Close()

	msg := "processing failed\nslide 3: missing image\nslide 7: bad layout"
	p.Error(banner.ClassAlert, msg)

	b := p.Active(banner.ClassAlert)
	if b == nil {
		t.Fatal("banner not active")
	}
	if b.Message != msg {
		t.Fatalf("line breaks not preserved: %q", b.Message)
	}
	if strings.Count(b.Message, "\n") != 2 {
		t.Errorf("expected 2 line breaks, got %d", strings.Count(b.Message, "\n"))
	}
}

func TestDismissWithoutActiveBannerIsNoop(t *testing.T) {
	rec := &recorder{}
	p := banner.NewPresenter(banner.Config{Notify: rec.notify})
	defer p.Close()

	p.Dismiss(banner.ClassAlert)

	if rec.len() != 0 {
		t.Errorf("dismissing nothing should not notify, got %d events", rec.len())
	}
}
