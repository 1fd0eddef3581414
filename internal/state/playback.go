package state

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/narration"
)

// ErrAlreadyStarted is returned by Start after the first call
var ErrAlreadyStarted = errors.New("presentation already started")

// DefaultSettleDelay is the pause between narration end and auto-advance
const DefaultSettleDelay = time.Second

type Mode int

const (
	ModeNotStarted Mode = iota
	ModePlaying
	ModePaused
)

func (m Mode) String() string {
	switch m {
	case ModeNotStarted:
		return "NotStarted"
	case ModePlaying:
		return "Playing"
	case ModePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Player plays one clip at a time. onEnded fires only when a clip plays to
// the end, never after Stop or a newer Play.
type Player interface {
	Play(clip *audio.Clip, onEnded func()) error
	Pause()
	Resume() bool
	Stop()
}

// Acquirer fetches narration for a slide
type Acquirer interface {
	Acquire(ctx context.Context, slide deck.Slide, language string, token uint64, current narration.TokenFunc) (*narration.Result, error)
}

// Timer is the part of *time.Timer the settle logic needs
type Timer interface {
	Stop() bool
}

// Config represents playback configuration
type Config struct {
	Language    string
	SettleDelay time.Duration
}

// Status is a snapshot of the playback session
type Status struct {
	Mode     Mode
	Index    int
	Total    int
	Slide    deck.Slide
	Token    uint64
	HasAudio bool
	Source   narration.Source
	// Loading is set while narration for the current token is in flight
	Loading   bool
	LastError error
}

// Playback is the presentation state machine: slide position, play/pause
// mode and the narration request token. Every narration result passes a
// single commit point that drops anything not issued under the current token.
type Playback struct {
	mu sync.Mutex

	nav      *deck.Navigator
	player   Player
	acquirer Acquirer
	config   Config

	mode    Mode
	token   uint64
	current *audio.Clip
	source  narration.Source
	loading bool
	ended   bool
	lastErr error

	settle Timer

	baseCtx    context.Context
	baseCancel context.CancelFunc

	spawn     func(func())
	afterFunc func(time.Duration, func()) Timer
	observers []func(Status)
}

// NewPlayback creates a session positioned on the first slide
func NewPlayback(nav *deck.Navigator, player Player, acquirer Acquirer, config Config) *Playback {
	if config.SettleDelay <= 0 {
		config.SettleDelay = DefaultSettleDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Playback{
		nav:        nav,
		player:     player,
		acquirer:   acquirer,
		config:     config,
		mode:       ModeNotStarted,
		baseCtx:    ctx,
		baseCancel: cancel,
		spawn:      func(f func()) { go f() },
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
}

// OnChange registers an observer called after every state change. Observers
// run outside the lock and may call back into Playback.
func (p *Playback) OnChange(f func(Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, f)
}

// Start begins the presentation and fetches narration for the current slide
func (p *Playback) Start(ctx context.Context) error {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModeNotStarted {
		return ErrAlreadyStarted
	}

	if ctx != nil {
		p.baseCancel()
		p.baseCtx, p.baseCancel = context.WithCancel(ctx)
	}

	p.setMode(ModePlaying)
	p.reacquireLocked()
	return nil
}

// Toggle flips between Playing and Paused. It never changes the slide or
// the narration token.
func (p *Playback) Toggle() Mode {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.mode {
	case ModePlaying:
		p.pauseLocked()
	case ModePaused:
		p.resumeLocked()
	}
	return p.mode
}

// Pause holds narration if playing. It reports whether the mode changed.
func (p *Playback) Pause() bool {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModePlaying {
		return false
	}
	p.pauseLocked()
	return true
}

// Resume continues a paused presentation. It reports whether the mode changed.
func (p *Playback) Resume() bool {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModePaused {
		return false
	}
	p.resumeLocked()
	return true
}

// Next moves forward one slide in any mode. It is a no-op on the last slide.
func (p *Playback) Next() bool {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, moved := p.nav.Next(); !moved {
		return false
	}
	p.reacquireLocked()
	return true
}

// Previous moves back one slide in any mode. It is a no-op on the first slide.
func (p *Playback) Previous() bool {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, moved := p.nav.Previous(); !moved {
		return false
	}
	p.reacquireLocked()
	return true
}

// Reload fetches narration for the current slide again
func (p *Playback) Reload() bool {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == ModeNotStarted {
		return false
	}
	p.reacquireLocked()
	return true
}

// OnAudioEnded reports that the clip committed under token finished. Ends
// from superseded clips and ends while not Playing are ignored.
func (p *Playback) OnAudioEnded(token uint64) {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModePlaying || token != p.token {
		return
	}

	p.ended = true
	p.scheduleAdvanceLocked()
}

// Token returns the current narration request token
func (p *Playback) Token() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Status returns a snapshot of the session
func (p *Playback) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Close cancels in-flight requests and timers and stops playback
func (p *Playback) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelSettleLocked()
	p.baseCancel()
	p.player.Stop()
}

func (p *Playback) statusLocked() Status {
	return Status{
		Mode:      p.mode,
		Index:     p.nav.Index(),
		Total:     p.nav.Deck().Len(),
		Slide:     p.nav.Current(),
		Token:     p.token,
		HasAudio:  p.current != nil,
		Source:    p.source,
		Loading:   p.loading,
		LastError: p.lastErr,
	}
}

func (p *Playback) notify() {
	p.mu.Lock()
	observers := p.observers
	status := p.statusLocked()
	p.mu.Unlock()

	for _, f := range observers {
		f(status)
	}
}

func (p *Playback) setMode(m Mode) {
	old := p.mode
	p.mode = m
	if old != m {
		log.Printf("Playback changed: %s -> %s", old, m)
	}
}

func (p *Playback) pauseLocked() {
	p.cancelSettleLocked()
	p.player.Pause()
	p.setMode(ModePaused)
}

func (p *Playback) resumeLocked() {
	p.setMode(ModePlaying)

	switch {
	case p.player.Resume():
	case p.ended:
		// Paused during the settle window; carry on with the advance.
		p.scheduleAdvanceLocked()
	case p.current != nil:
		p.playLocked()
	}
}

// reacquireLocked drops the current clip and issues a request under a fresh
// token. Requests under older tokens run to completion and are dropped at
// commit; only Close cancels them.
func (p *Playback) reacquireLocked() {
	p.cancelSettleLocked()
	p.player.Stop()

	p.token++
	p.current = nil
	p.ended = false
	p.loading = true
	p.lastErr = nil

	token := p.token
	slide := p.nav.Current()
	language := p.config.Language
	ctx := p.baseCtx

	p.spawn(func() {
		result, err := p.acquirer.Acquire(ctx, slide, language, token, p.Token)
		p.commit(token, result, err)
	})
}

// commit is the only place narration results enter the session
func (p *Playback) commit(token uint64, result *narration.Result, err error) {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token {
		log.Printf("Discarding narration for token %d (current %d)", token, p.token)
		return
	}
	if p.baseCtx.Err() != nil {
		return
	}

	p.loading = false
	if err != nil {
		if errors.Is(err, narration.ErrCancelled) || errors.Is(err, context.Canceled) {
			return
		}
		p.lastErr = err
		log.Printf("Slide %d continues without narration: %v", p.nav.Current().ID, err)
		return
	}

	p.current = result.Clip
	p.source = result.Source

	if p.mode == ModePlaying {
		p.playLocked()
	}
}

func (p *Playback) playLocked() {
	token := p.token
	err := p.player.Play(p.current, func() { p.OnAudioEnded(token) })
	if err != nil {
		p.lastErr = err
		log.Printf("Failed to play narration for slide %d: %v", p.nav.Current().ID, err)
	}
}

func (p *Playback) scheduleAdvanceLocked() {
	p.cancelSettleLocked()
	token := p.token
	p.settle = p.afterFunc(p.config.SettleDelay, func() { p.advance(token) })
}

func (p *Playback) cancelSettleLocked() {
	if p.settle != nil {
		p.settle.Stop()
		p.settle = nil
	}
}

// advance runs when the settle delay expires
func (p *Playback) advance(token uint64) {
	defer p.notify()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModePlaying || token != p.token {
		return
	}
	p.settle = nil

	if p.nav.AtLast() {
		log.Printf("Reached the last slide")
		p.ended = false
		p.setMode(ModePaused)
		return
	}

	p.nav.Next()
	p.reacquireLocked()
}
