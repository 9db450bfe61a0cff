// Package notify sends push alerts for attack verdicts.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gregdel/pushover"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/model"
)

// Notifier is told about every classified request and decides whether to alert.
type Notifier interface {
	Notify(ev model.TrafficEvent, v model.Verdict) bool
}

// Nop never alerts.
type Nop struct{}

func (Nop) Notify(model.TrafficEvent, model.Verdict) bool { return false }

type sender interface {
	SendMessage(msg *pushover.Message, rec *pushover.Recipient) (*pushover.Response, error)
}

// Pushover alerts on confident attack verdicts, at most once per source IP
// per cooldown window. Messages are sent in the background.
type Pushover struct {
	app           sender
	recipient     *pushover.Recipient
	cooldown      time.Duration
	minConfidence float64
	logger        zerolog.Logger
	now           func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	wg       sync.WaitGroup
}

func NewPushover(cfg config.PushoverConfig, logger zerolog.Logger) *Pushover {
	return newPushover(pushover.New(cfg.AppToken), cfg, logger)
}

func newPushover(app sender, cfg config.PushoverConfig, logger zerolog.Logger) *Pushover {
	return &Pushover{
		app:           app,
		recipient:     pushover.NewRecipient(cfg.Recipient),
		cooldown:      cfg.Cooldown,
		minConfidence: cfg.MinConfidence,
		logger:        logger.With().Str("component", "notify").Logger(),
		now:           time.Now,
		lastSent:      make(map[string]time.Time),
	}
}

// Notify reports whether an alert was queued.
func (p *Pushover) Notify(ev model.TrafficEvent, v model.Verdict) bool {
	if !v.IsAttack() || v.Confidence < p.minConfidence {
		return false
	}
	if !p.claim(ev.IP) {
		return false
	}

	msg := &pushover.Message{
		Title:     "Axon: attack from " + displayIP(ev.IP),
		Message:   formatAlert(ev, v),
		Priority:  pushover.PriorityNormal,
		Timestamp: ev.Timestamp / 1000,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.app.SendMessage(msg, p.recipient); err != nil {
			p.logger.Warn().Err(err).Str("ip", ev.IP).Msg("pushover send failed")
		}
	}()
	return true
}

// claim records an alert for ip unless one was sent within the cooldown.
func (p *Pushover) claim(ip string) bool {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if last, ok := p.lastSent[ip]; ok && now.Sub(last) < p.cooldown {
		return false
	}
	p.lastSent[ip] = now

	if len(p.lastSent) > 1024 {
		for k, t := range p.lastSent {
			if now.Sub(t) >= p.cooldown {
				delete(p.lastSent, k)
			}
		}
	}
	return true
}

// Wait blocks until queued alerts are sent.
func (p *Pushover) Wait() {
	p.wg.Wait()
}

func displayIP(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}

func formatAlert(ev model.TrafficEvent, v model.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", ev.Method, ev.Path)
	fmt.Fprintf(&b, "IP: %s", displayIP(ev.IP))
	if ev.Country != "" {
		fmt.Fprintf(&b, " (%s)", ev.Country)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Score: %d, confidence %.2f\n", v.Score, v.Confidence)
	if len(v.Reasons) > 0 {
		fmt.Fprintf(&b, "Reasons: %s\n", strings.Join(v.Reasons, ", "))
	}
	if ev.UserAgent != "" {
		fmt.Fprintf(&b, "UA: %s\n", ev.UserAgent)
	}
	return b.String()
}
