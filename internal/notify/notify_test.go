package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gregdel/pushover"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/model"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []*pushover.Message
	err  error
}

func (f *fakeSender) SendMessage(msg *pushover.Message, _ *pushover.Recipient) (*pushover.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return &pushover.Response{}, f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func newTestNotifier(s sender) (*Pushover, *time.Time) {
	clock := time.UnixMilli(1700000000000)
	p := newPushover(s, config.PushoverConfig{
		AppToken:      "app",
		Recipient:     "user",
		Cooldown:      10 * time.Minute,
		MinConfidence: 0.5,
	}, zerolog.Nop())
	p.now = func() time.Time { return clock }
	return p, &clock
}

var attackEvent = model.TrafficEvent{
	Timestamp:  1700000000000,
	Path:       "/.env",
	Method:     "GET",
	IP:         "203.0.113.50",
	Country:    "CN",
	UserAgent:  "curl/8.0",
	Prediction: model.LabelAttack,
	Confidence: 0.85,
}

var attackVerdict = model.Verdict{
	Label:      model.LabelAttack,
	Score:      85,
	Confidence: 0.85,
	Reasons:    []string{"bot_user_agent", "sensitive_file_access"},
}

func TestNotifySendsAlert(t *testing.T) {
	s := &fakeSender{}
	p, _ := newTestNotifier(s)

	if !p.Notify(attackEvent, attackVerdict) {
		t.Fatal("attack was not alerted")
	}
	p.Wait()

	if s.count() != 1 {
		t.Fatalf("sent %d messages, want 1", s.count())
	}
	msg := s.msgs[0]
	if msg.Title != "Axon: attack from 203.0.113.50" {
		t.Errorf("title = %q", msg.Title)
	}
	for _, want := range []string{"GET /.env", "(CN)", "sensitive_file_access", "curl/8.0"} {
		if !strings.Contains(msg.Message, want) {
			t.Errorf("message %q missing %q", msg.Message, want)
		}
	}
	if msg.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d", msg.Timestamp)
	}
}

func TestNotifySkipsLegitAndLowConfidence(t *testing.T) {
	s := &fakeSender{}
	p, _ := newTestNotifier(s)

	legit := attackVerdict
	legit.Label = model.LabelLegit
	if p.Notify(attackEvent, legit) {
		t.Error("legit verdict alerted")
	}

	weak := attackVerdict
	weak.Confidence = 0.4
	if p.Notify(attackEvent, weak) {
		t.Error("low confidence verdict alerted")
	}
	p.Wait()
	if s.count() != 0 {
		t.Fatalf("sent %d messages, want 0", s.count())
	}
}

func TestNotifyCooldownPerIP(t *testing.T) {
	s := &fakeSender{}
	p, clock := newTestNotifier(s)

	if !p.Notify(attackEvent, attackVerdict) {
		t.Fatal("first alert suppressed")
	}
	if p.Notify(attackEvent, attackVerdict) {
		t.Fatal("second alert inside cooldown was sent")
	}

	other := attackEvent
	other.IP = "198.51.100.2"
	if !p.Notify(other, attackVerdict) {
		t.Fatal("alert for a different IP suppressed")
	}

	*clock = clock.Add(11 * time.Minute)
	if !p.Notify(attackEvent, attackVerdict) {
		t.Fatal("alert after cooldown suppressed")
	}
	p.Wait()
	if s.count() != 3 {
		t.Fatalf("sent %d messages, want 3", s.count())
	}
}

func TestNotifySendErrorIsSwallowed(t *testing.T) {
	s := &fakeSender{err: errors.New("rate limited")}
	p, _ := newTestNotifier(s)

	if !p.Notify(attackEvent, attackVerdict) {
		t.Fatal("alert not queued")
	}
	p.Wait()
	if s.count() != 1 {
		t.Fatalf("sent %d messages, want 1", s.count())
	}
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	if n.Notify(attackEvent, attackVerdict) {
		t.Fatal("Nop alerted")
	}
}
