package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hershield/internal/models"
	"hershield/pkg/logger"
	"hershield/pkg/speech"
)

// TriggerSource is anything that can produce an emergency candidate: the SOS
// button, the voice keyword spotter, or the ride check-in timer.
type TriggerSource interface {
	Events() <-chan models.TriggerEvent
	Stop()
}

// DefaultTriggerPhrases maps language tags to emergency keywords, matched
// case-insensitively as substrings of each finalized utterance.
var DefaultTriggerPhrases = map[string][]string{
	"en-US": {"help", "emergency", "sos", "danger"},
	"hi-IN": {"मदद", "बचाओ", "बचाव", "खतरा"},
	"te-IN": {"సాయం", "సహాయం", "కాపాడండి"},
	"ta-IN": {"உதவி", "காப்பாற்று"},
	"mr-IN": {"मदत", "बचाव"},
	"bn-IN": {"সাহায্য", "বাঁচাও"},
}

// ManualTrigger is the SOS button: a synchronous fire by explicit user action.
type ManualTrigger struct {
	clock Clock
}

func NewManualTrigger(clock Clock) *ManualTrigger {
	return &ManualTrigger{clock: clock}
}

func (m *ManualTrigger) Fire() models.TriggerEvent {
	return models.TriggerEvent{
		Source:     models.TriggerKindManual,
		DetectedAt: m.clock.Now(),
	}
}

// VoiceTrigger spots emergency keywords in a continuous recognition stream.
// One language is active at a time; the recognizer is restarted with the
// next configured language (round-robin) whenever it errors or stops. After
// a match the trigger latches and stays silent until Reset.
type VoiceTrigger struct {
	provider     speech.Provider
	gate         PermissionGate
	logger       *logger.Logger
	clock        Clock
	languages    []string
	phrases      map[string][]string
	restartDelay time.Duration

	mu       sync.Mutex
	events   chan models.TriggerEvent
	langIdx  int
	latched  bool
	enabled  bool
	stopped  bool
	listenID int // invalidates restart callbacks from a superseded session
}

func NewVoiceTrigger(
	provider speech.Provider,
	gate PermissionGate,
	clock Clock,
	log *logger.Logger,
	languages []string,
	phrases map[string][]string,
) *VoiceTrigger {
	if len(phrases) == 0 {
		phrases = DefaultTriggerPhrases
	}
	if len(languages) == 0 {
		for lang := range phrases {
			languages = append(languages, lang)
		}
	}

	return &VoiceTrigger{
		provider:     provider,
		gate:         gate,
		logger:       log,
		clock:        clock,
		languages:    languages,
		phrases:      phrases,
		restartDelay: time.Second,
		events:       make(chan models.TriggerEvent, 1),
	}
}

// Start begins listening. A missing platform recognizer or denied microphone
// permission leaves the trigger disabled (it never fires) and is reported to
// the caller so the UI can show "voice detection inactive".
func (v *VoiceTrigger) Start(ctx context.Context) error {
	if !v.provider.Available() {
		v.logger.Warn("Speech recognition unavailable, voice detection inactive")
		return speech.ErrNotSupported
	}

	granted, err := v.gate.Request(ctx, CapabilityMicrophone)
	if err != nil {
		return fmt.Errorf("failed to request microphone permission: %w", err)
	}
	if !granted {
		v.logger.Warn("Microphone permission denied, voice detection inactive")
		return speech.ErrPermissionDenied
	}

	v.mu.Lock()
	if v.enabled {
		v.mu.Unlock()
		return nil
	}
	v.enabled = true
	v.stopped = false
	v.listenID++
	id := v.listenID
	lang := v.languages[v.langIdx]
	v.mu.Unlock()

	return v.listen(ctx, id, lang)
}

func (v *VoiceTrigger) listen(ctx context.Context, id int, lang string) error {
	callbacks := speech.Callbacks{
		OnUtterance: func(text string, final bool) {
			if final {
				v.onUtterance(text)
			}
		},
		OnError: func(err error) {
			v.onRecognizerDown(ctx, id, err)
		},
		OnStopped: func() {
			v.onRecognizerDown(ctx, id, nil)
		},
	}

	if err := v.provider.Start(ctx, lang, callbacks); err != nil {
		v.mu.Lock()
		v.enabled = false
		v.mu.Unlock()
		return fmt.Errorf("failed to start recognition in %s: %w", lang, err)
	}

	v.logger.WithField("language", lang).Debug("Voice detection listening")
	return nil
}

func (v *VoiceTrigger) onUtterance(text string) {
	lang, phrase, ok := v.match(text)
	if !ok {
		return
	}

	v.mu.Lock()
	if v.latched || v.stopped {
		v.mu.Unlock()
		return
	}
	v.latched = true
	event := models.TriggerEvent{
		Source:        models.TriggerKindVoice,
		DetectedAt:    v.clock.Now(),
		Language:      lang,
		MatchedPhrase: phrase,
	}
	select {
	case v.events <- event:
	default:
	}
	v.mu.Unlock()

	v.logger.WithFields(map[string]interface{}{
		"language": lang,
		"phrase":   phrase,
	}).Warn("Emergency keyword detected")
}

// match scans every configured language's phrase table, not just the active
// one: the recognizer frequently transcribes a keyword spoken in another
// language well enough for a substring hit.
func (v *VoiceTrigger) match(text string) (lang, phrase string, ok bool) {
	lowered := strings.ToLower(text)
	for _, l := range v.languages {
		for _, p := range v.phrases[l] {
			if strings.Contains(lowered, strings.ToLower(p)) {
				return l, p, true
			}
		}
	}
	return "", "", false
}

// onRecognizerDown handles both recognizer errors and normal stream ends by
// rotating to the next language and restarting after a short delay.
func (v *VoiceTrigger) onRecognizerDown(ctx context.Context, id int, err error) {
	if err != nil && errors.Is(err, speech.ErrPermissionDenied) {
		v.mu.Lock()
		v.enabled = false
		v.mu.Unlock()
		v.logger.Warn("Microphone permission revoked, voice detection inactive")
		return
	}
	if err != nil {
		v.logger.WithError(err).Debug("Recognition stream error")
	}

	v.mu.Lock()
	if v.stopped || id != v.listenID {
		v.mu.Unlock()
		return
	}
	v.langIdx = (v.langIdx + 1) % len(v.languages)
	lang := v.languages[v.langIdx]
	v.mu.Unlock()

	v.clock.After(v.restartDelay, func() {
		v.mu.Lock()
		if v.stopped || id != v.listenID {
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()

		if err := v.listen(ctx, id, lang); err != nil {
			v.logger.WithError(err).Warn("Failed to restart voice detection")
		}
	})
}

func (v *VoiceTrigger) Events() <-chan models.TriggerEvent {
	return v.events
}

// Reset releases the debounce latch so the next keyword can fire again.
func (v *VoiceTrigger) Reset() {
	v.mu.Lock()
	v.latched = false
	v.mu.Unlock()
}

func (v *VoiceTrigger) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// ActiveLanguage reports the language the recognizer is currently cycling on.
func (v *VoiceTrigger) ActiveLanguage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.languages[v.langIdx]
}

func (v *VoiceTrigger) Stop() {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}
	v.stopped = true
	v.enabled = false
	v.listenID++
	v.mu.Unlock()

	v.provider.Stop()
}

// PeriodicCheckTrigger fires a check-in event at a fixed interval while a
// ride session is active.
type PeriodicCheckTrigger struct {
	interval time.Duration
	clock    Clock

	mu      sync.Mutex
	events  chan models.TriggerEvent
	timer   TimerHandle
	stopped bool
	count   int
}

func NewPeriodicCheckTrigger(interval time.Duration, clock Clock) *PeriodicCheckTrigger {
	return &PeriodicCheckTrigger{
		interval: interval,
		clock:    clock,
		events:   make(chan models.TriggerEvent, 1),
	}
}

func (p *PeriodicCheckTrigger) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.timer != nil {
		return
	}
	p.timer = p.clock.After(p.interval, p.tick)
}

func (p *PeriodicCheckTrigger) tick() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.count++
	event := models.TriggerEvent{
		Source:      models.TriggerKindPeriodicCheck,
		DetectedAt:  p.clock.Now(),
		CheckNumber: p.count,
	}
	select {
	case p.events <- event:
	default:
	}
	p.timer = p.clock.After(p.interval, p.tick)
	p.mu.Unlock()
}

func (p *PeriodicCheckTrigger) Events() <-chan models.TriggerEvent {
	return p.events
}

// Stop disarms the timer; no event fires after Stop returns.
func (p *PeriodicCheckTrigger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	close(p.events)
}
