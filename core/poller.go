package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FileSourceResolver is the poller's narrow view of the source resolver:
// served-file sources only. The bootstrap API and static fallback are
// one-shot bootstrap concerns and are never re-polled.
type FileSourceResolver interface {
	ResolveFileSources(ctx context.Context) (Credential, error)
}

// CredentialPoller watches the served-file credential on a fixed interval.
// Ticks are cooperative: a tick that would overlap a still-running attempt
// is skipped. Every per-source error is swallowed and logged; polling must
// never crash the process or surface transient file-serving hiccups.
type CredentialPoller struct {
	resolver  FileSourceResolver
	installer CredentialInstaller
	reader    SessionReader
	interval  time.Duration
	logger    Logger
	metrics   MetricsRecorder
	nowFn     func() time.Time

	busy     atomic.Bool
	mu       sync.Mutex
	baseline Fingerprint
	seeded   bool

	cancel context.CancelFunc
	done   chan struct{}
}

type PollerConfig struct {
	Resolver  FileSourceResolver
	Installer CredentialInstaller
	Reader    SessionReader
	Interval  time.Duration
	Logger    Logger
	Metrics   MetricsRecorder
}

func NewCredentialPoller(cfg PollerConfig) *CredentialPoller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	return &CredentialPoller{
		resolver:  cfg.Resolver,
		installer: cfg.Installer,
		reader:    cfg.Reader,
		interval:  interval,
		logger:    cfg.Logger,
		metrics:   metrics,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the polling loop. It is a no-op when already running.
func (p *CredentialPoller) Start(ctx context.Context) {
	if p == nil || p.resolver == nil || p.installer == nil {
		return
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.run(runCtx)
}

// Stop cancels the loop and waits for the in-flight tick to finish, so no
// orphan timers survive component teardown.
func (p *CredentialPoller) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *CredentialPoller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick performs one resolution attempt. First tick records the fingerprint
// baseline and adopts the credential when the session has none yet; later
// ticks install only a genuinely changed, still-valid credential.
func (p *CredentialPoller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.metrics.IncCounter(ctx, "session.poll.skipped_busy", 1, nil)
		return
	}
	defer p.busy.Store(false)

	cred, err := p.resolver.ResolveFileSources(ctx)
	if err != nil {
		p.logDebug("credential poll resolution failed", "error", err.Error())
		p.metrics.IncCounter(ctx, "session.poll.miss", 1, nil)
		return
	}

	fingerprint := FingerprintOf(cred.Raw)

	p.mu.Lock()
	seeded := p.seeded
	baseline := p.baseline
	if !seeded {
		p.baseline = fingerprint
		p.seeded = true
	}
	p.mu.Unlock()

	if !seeded {
		if p.reader != nil && p.reader.Current().Credential == nil {
			if adoptErr := p.installer.AdoptCredential(ctx, cred); adoptErr != nil {
				p.logDebug("credential adoption failed", "error", adoptErr.Error())
			}
		}
		return
	}

	if fingerprint.Matches(baseline) {
		return
	}

	if !cred.Usable(p.nowFn()) {
		p.logDebug("changed credential is expired or unusable, ignoring")
		p.metrics.IncCounter(ctx, "session.poll.rejected_stale", 1, nil)
		return
	}

	if err := p.installer.ReplaceCredential(ctx, cred); err != nil {
		p.logDebug("credential replacement failed", "error", err.Error())
		return
	}

	p.mu.Lock()
	p.baseline = fingerprint
	p.mu.Unlock()
	p.metrics.IncCounter(ctx, "session.poll.replaced", 1, nil)
}

func (p *CredentialPoller) logDebug(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(message, args...)
}
