// Package session ties the presentation together: deck, narrated playback,
// question capture and the conversation log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"presentation-assistant/internal/asr"
	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/conversation"
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/qa"
	"presentation-assistant/internal/state"
	"presentation-assistant/internal/tts"
	"presentation-assistant/internal/voice"
)

var (
	// ErrNotLoaded is returned by controls used before Load succeeded
	ErrNotLoaded = errors.New("presentation is not loaded")
	// ErrNoAnswerAudio is returned by PlayAnswer for text-only messages
	ErrNoAnswerAudio = errors.New("message has no audio")
)

// DeckLoader fetches the slide deck. *deck.Client satisfies it.
type DeckLoader interface {
	Load(ctx context.Context, language, deckName string) (*deck.Deck, error)
}

// Services are the collaborators a Presenter drives. Answers and Recorder
// may be nil.
type Services struct {
	Deck        DeckLoader
	Narration   state.Acquirer
	Transcriber asr.Transcriber
	Answerer    qa.Answerer
	Speech      tts.Synthesizer
	// Narrator plays slide narration, Answers plays spoken answers
	Narrator state.Player
	Answers  state.Player
	Recorder *voice.Recorder
}

// Config represents presenter configuration
type Config struct {
	Language        string
	Deck            string
	SettleDelay     time.Duration
	PauseOnQuestion bool
	AutoPlayAnswers bool
	Policy          conversation.Policy
}

// DefaultConfig returns default presenter configuration
func DefaultConfig() Config {
	return Config{
		Language:        "ru",
		SettleDelay:     state.DefaultSettleDelay,
		PauseOnQuestion: true,
		AutoPlayAnswers: true,
		Policy:          conversation.PolicyReview,
	}
}

// Snapshot is everything a view needs to render the session
type Snapshot struct {
	Loaded       bool
	DeckName     string
	Language     string
	Playback     state.Status
	Conversation conversation.State
	Messages     []conversation.Message
	Recorder     voice.State
	// PausedForQuestion is set while narration is held for a question
	PausedForQuestion bool
}

// Presenter is the application session
type Presenter struct {
	services Services
	config   Config

	mu                sync.Mutex
	deck              *deck.Deck
	playback          *state.Playback
	conv              *conversation.Orchestrator
	pausedForQuestion bool
	observers         []func()
}

// NewPresenter creates an unloaded presenter
func NewPresenter(services Services, config Config) *Presenter {
	if config.Language == "" {
		config.Language = DefaultConfig().Language
	}
	p := &Presenter{services: services, config: config}
	if services.Recorder != nil {
		services.Recorder.OnCaptured(func(*audio.Clip) { p.notify() })
	}
	return p
}

// OnChange registers an observer called after any part of the session changes
func (p *Presenter) OnChange(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, f)
}

// Load fetches the deck and resets playback and conversation. A deck load
// failure is fatal to the session and is returned as is.
func (p *Presenter) Load(ctx context.Context) error {
	d, err := p.services.Deck.Load(ctx, p.config.Language, p.config.Deck)
	if err != nil {
		return err
	}
	log.Printf("Loaded deck %q: %d slides (%s)", d.Name(), d.Len(), d.Language())

	playback := state.NewPlayback(deck.NewNavigator(d), p.services.Narrator, p.services.Narration, state.Config{
		Language:    p.config.Language,
		SettleDelay: p.config.SettleDelay,
	})
	playback.OnChange(func(state.Status) { p.notify() })

	conv := conversation.NewOrchestrator(p.services.Transcriber, p.services.Answerer, p.services.Speech,
		func() deck.Slide { return playback.Status().Slide },
		conversation.Config{Language: p.config.Language, Policy: p.config.Policy})
	conv.OnChange(func(conversation.State) { p.notify() })

	p.mu.Lock()
	old := p.playback
	p.deck = d
	p.playback = playback
	p.conv = conv
	p.pausedForQuestion = false
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	p.notify()
	return nil
}

// Start begins narrated playback from the first slide
func (p *Presenter) Start(ctx context.Context) error {
	pb, err := p.session()
	if err != nil {
		return err
	}
	return pb.Start(ctx)
}

// Toggle flips play and pause. It clears a question pause.
func (p *Presenter) Toggle() (state.Mode, error) {
	pb, err := p.session()
	if err != nil {
		return state.ModeNotStarted, err
	}
	p.stopAnswer()
	p.clearQuestionPause()
	return pb.Toggle(), nil
}

// Next moves to the following slide
func (p *Presenter) Next() (bool, error) {
	pb, err := p.session()
	if err != nil {
		return false, err
	}
	p.stopAnswer()
	return pb.Next(), nil
}

// Previous moves to the preceding slide
func (p *Presenter) Previous() (bool, error) {
	pb, err := p.session()
	if err != nil {
		return false, err
	}
	p.stopAnswer()
	return pb.Previous(), nil
}

// Reload fetches narration for the current slide again
func (p *Presenter) Reload() (bool, error) {
	pb, err := p.session()
	if err != nil {
		return false, err
	}
	return pb.Reload(), nil
}

// Ask submits a typed question about the current slide
func (p *Presenter) Ask(ctx context.Context, text string) error {
	conv, err := p.conversation()
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return conversation.ErrEmptyQuestion
	}
	if conv.State().Pending {
		return conversation.ErrBusy
	}

	held := p.pauseForQuestion()
	if err := conv.SubmitText(ctx, text); err != nil {
		if held && rejected(err) {
			p.releaseQuestionPause()
		}
		return err
	}
	p.autoPlayLatest()
	return nil
}

// SubmitDraft submits the reviewed transcript
func (p *Presenter) SubmitDraft(ctx context.Context) error {
	conv, err := p.conversation()
	if err != nil {
		return err
	}

	st := conv.State()
	if strings.TrimSpace(st.Draft) == "" {
		return conversation.ErrNoDraft
	}
	if st.Pending {
		return conversation.ErrBusy
	}

	held := p.pauseForQuestion()
	if err := conv.SubmitDraft(ctx); err != nil {
		if held && rejected(err) {
			p.releaseQuestionPause()
		}
		return err
	}
	p.autoPlayLatest()
	return nil
}

// SetDraft replaces the transcript draft
func (p *Presenter) SetDraft(text string) error {
	conv, err := p.conversation()
	if err != nil {
		return err
	}
	conv.SetDraft(text)
	return nil
}

// DiscardDraft drops the transcript draft
func (p *Presenter) DiscardDraft() error {
	conv, err := p.conversation()
	if err != nil {
		return err
	}
	conv.DiscardDraft()
	return nil
}

// Dismiss clears the conversation error notice
func (p *Presenter) Dismiss() {
	if conv, err := p.conversation(); err == nil {
		conv.Dismiss()
	}
}

// StartRecording opens the microphone for a spoken question
func (p *Presenter) StartRecording(ctx context.Context) error {
	if _, err := p.conversation(); err != nil {
		return err
	}
	if p.services.Recorder == nil {
		return voice.ErrDeviceUnavailable
	}

	p.stopAnswer()
	p.pauseForQuestion()
	if err := p.services.Recorder.StartRecording(ctx); err != nil {
		p.notify()
		return err
	}
	p.notify()
	return nil
}

// StopRecording finalizes the recording and keeps the clip for submission
func (p *Presenter) StopRecording() (*audio.Clip, error) {
	if p.services.Recorder == nil {
		return nil, voice.ErrDeviceUnavailable
	}
	defer p.notify()
	return p.services.Recorder.StopRecording()
}

// SubmitRecording transcribes the held recording and returns the transcript
func (p *Presenter) SubmitRecording(ctx context.Context) (string, error) {
	conv, err := p.conversation()
	if err != nil {
		return "", err
	}
	if p.services.Recorder == nil {
		return "", voice.ErrDeviceUnavailable
	}
	if conv.State().Pending {
		return "", conversation.ErrBusy
	}

	clip, err := p.services.Recorder.Take()
	if err != nil {
		return "", err
	}
	p.notify()

	text, err := conv.SubmitAudio(ctx, clip)
	if err != nil {
		return "", err
	}
	p.autoPlayLatest()
	return text, nil
}

// DiscardRecording drops the recording in any state
func (p *Presenter) DiscardRecording() {
	if p.services.Recorder == nil {
		return
	}
	p.services.Recorder.Clear()
	p.notify()
}

// PlayAnswer plays the audio of a logged message, holding narration
func (p *Presenter) PlayAnswer(id int) error {
	conv, err := p.conversation()
	if err != nil {
		return err
	}
	if p.services.Answers == nil {
		return fmt.Errorf("%w: no answer output", ErrNoAnswerAudio)
	}

	for _, m := range conv.Messages() {
		if m.ID != id {
			continue
		}
		if m.Audio.Empty() {
			return ErrNoAnswerAudio
		}
		p.holdNarration()
		return p.services.Answers.Play(m.Audio, nil)
	}
	return fmt.Errorf("%w: %d", conversation.ErrUnknownMessage, id)
}

// Resume closes the question: answer audio stops and narration held for the
// question continues. It reports whether narration resumed.
func (p *Presenter) Resume() bool {
	pb, err := p.session()
	if err != nil {
		return false
	}
	p.stopAnswer()

	p.mu.Lock()
	held := p.pausedForQuestion
	p.pausedForQuestion = false
	p.mu.Unlock()

	if !held {
		p.notify()
		return false
	}
	return pb.Resume()
}

// Snapshot returns the current session view
func (p *Presenter) Snapshot() Snapshot {
	p.mu.Lock()
	d, pb, conv := p.deck, p.playback, p.conv
	held := p.pausedForQuestion
	p.mu.Unlock()

	snap := Snapshot{
		Language:          p.config.Language,
		PausedForQuestion: held,
	}
	if p.services.Recorder != nil {
		snap.Recorder = p.services.Recorder.State()
	}
	if d == nil {
		return snap
	}

	snap.Loaded = true
	snap.DeckName = d.Name()
	snap.Playback = pb.Status()
	snap.Conversation = conv.State()
	snap.Messages = conv.Messages()
	return snap
}

// Close stops audio, capture and in-flight requests
func (p *Presenter) Close() {
	p.mu.Lock()
	pb := p.playback
	p.mu.Unlock()

	if pb != nil {
		pb.Close()
	}
	p.stopAnswer()
	if p.services.Recorder != nil {
		p.services.Recorder.Clear()
	}
}

func (p *Presenter) session() (*state.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playback == nil {
		return nil, ErrNotLoaded
	}
	return p.playback, nil
}

func (p *Presenter) conversation() (*conversation.Orchestrator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conv == nil {
		return nil, ErrNotLoaded
	}
	return p.conv, nil
}

// pauseForQuestion holds narration for a question. It never moves the slide.
// pauseForQuestion reports whether this call paused narration
func (p *Presenter) pauseForQuestion() bool {
	if !p.config.PauseOnQuestion {
		return false
	}
	return p.holdNarration()
}

func (p *Presenter) holdNarration() bool {
	pb, err := p.session()
	if err != nil {
		return false
	}
	if !pb.Pause() {
		return false
	}
	p.mu.Lock()
	p.pausedForQuestion = true
	p.mu.Unlock()
	return true
}

// releaseQuestionPause undoes a hold taken for a question that never ran
func (p *Presenter) releaseQuestionPause() {
	pb, err := p.session()
	if err != nil {
		return
	}
	p.clearQuestionPause()
	pb.Resume()
}

// rejected reports errors returned before any exchange started
func rejected(err error) bool {
	return errors.Is(err, conversation.ErrBusy) ||
		errors.Is(err, conversation.ErrEmptyQuestion) ||
		errors.Is(err, conversation.ErrNoDraft)
}

func (p *Presenter) clearQuestionPause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pausedForQuestion = false
}

func (p *Presenter) stopAnswer() {
	if p.services.Answers != nil {
		p.services.Answers.Stop()
	}
}

// autoPlayLatest plays the newest assistant message if it carries audio
func (p *Presenter) autoPlayLatest() {
	if !p.config.AutoPlayAnswers || p.services.Answers == nil {
		return
	}
	conv, err := p.conversation()
	if err != nil {
		return
	}

	msgs := conv.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role != conversation.RoleAssistant || last.Audio.Empty() {
		return
	}
	if err := p.PlayAnswer(last.ID); err != nil {
		log.Printf("Failed to play answer: %v", err)
	}
}

func (p *Presenter) notify() {
	p.mu.Lock()
	observers := p.observers
	p.mu.Unlock()

	for _, f := range observers {
		f()
	}
}
