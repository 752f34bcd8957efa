package banner

import (
	"sync"
	"time"
)

// Level represents the banner severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Class partitions banners by purpose. Displaying a banner removes any
// prior banner of the same class first.
type Class string

const (
	// ClassSizeError is the size/quota feedback banner.
	ClassSizeError Class = "size-error"

	// ClassAlert is the generic outcome banner.
	ClassAlert Class = "alert"
)

// DefaultSuccessTTL is how long a success banner stays visible before
// it removes itself.
const DefaultSuccessTTL = 5 * time.Second

// Banner is one visible notification. Message may span multiple lines;
// line breaks are preserved.
type Banner struct {
	Class       Class  `json:"class"`
	Level       Level  `json:"level"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// Notifier receives every banner transition. A nil banner means the
// class was cleared (dismissed or expired).
type Notifier func(class Class, b *Banner)

// Config configures a Presenter.
type Config struct {
	// SuccessTTL overrides the success auto-expiry delay. Zero uses
	// DefaultSuccessTTL.
	SuccessTTL time.Duration

	// Notify is called on every show, dismissal and expiry. Optional.
	Notify Notifier
}

// Presenter owns the banner state for one page instance.
type Presenter struct {
	ttl    time.Duration
	notify Notifier

	mu      sync.Mutex
	active  map[Class]*Banner
	timers  map[Class]*time.Timer
	version map[Class]uint64
}

// NewPresenter creates a Presenter with the given configuration.
func NewPresenter(cfg Config) *Presenter {
	ttl := cfg.SuccessTTL
	if ttl == 0 {
		ttl = DefaultSuccessTTL
	}
	return &Presenter{
		ttl:     ttl,
		notify:  cfg.Notify,
		active:  make(map[Class]*Banner),
		timers:  make(map[Class]*time.Timer),
		version: make(map[Class]uint64),
	}
}

// Error shows a persistent, dismissible error banner, replacing any
// banner of the same class.
func (p *Presenter) Error(class Class, message string) {
	p.show(&Banner{
		Class:       class,
		Level:       LevelError,
		Message:     message,
		Dismissible: true,
	}, 0)
}

// Success shows a success banner on the alert class. It removes itself
// after the configured delay without user action.
func (p *Presenter) Success(message string) {
	p.show(&Banner{
		Class:   ClassAlert,
		Level:   LevelSuccess,
		Message: message,
	}, p.ttl)
}

// Dismiss removes the banner of the given class, if any.
func (p *Presenter) Dismiss(class Class) {
	p.mu.Lock()
	_, ok := p.active[class]
	if ok {
		p.clearLocked(class)
	}
	notify := p.notify
	p.mu.Unlock()

	if ok && notify != nil {
		notify(class, nil)
	}
}

// Active returns the currently displayed banner for a class, or nil.
func (p *Presenter) Active(class Class) *Banner {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.active[class]
	if !ok {
		return nil
	}
	copied := *b
	return &copied
}

// ActiveCount returns the number of visible banners across all classes.
func (p *Presenter) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Close stops all expiry timers. The presenter must not be used after
// Close.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for class := range p.active {
		p.clearLocked(class)
	}
}

func (p *Presenter) show(b *Banner, ttl time.Duration) {
	p.mu.Lock()
	// Replace any prior banner of the same class.
	p.clearLocked(b.Class)
	p.active[b.Class] = b
	p.version[b.Class]++
	version := p.version[b.Class]

	if ttl > 0 {
		p.timers[b.Class] = time.AfterFunc(ttl, func() {
			p.expire(b.Class, version)
		})
	}
	notify := p.notify
	p.mu.Unlock()

	if notify != nil {
		notify(b.Class, b)
	}
}

// expire removes an auto-expiring banner, unless it has already been
// replaced by a newer one.
func (p *Presenter) expire(class Class, version uint64) {
	p.mu.Lock()
	if p.version[class] != version {
		p.mu.Unlock()
		return
	}
	_, ok := p.active[class]
	if ok {
		p.clearLocked(class)
	}
	notify := p.notify
	p.mu.Unlock()

	if ok && notify != nil {
		notify(class, nil)
	}
}

func (p *Presenter) clearLocked(class Class) {
	delete(p.active, class)
	if t, ok := p.timers[class]; ok {
		t.Stop()
		delete(p.timers, class)
	}
}
