// Package conversation runs question and answer exchanges against the
// presentation: one at a time, into an append-only message log.
package conversation

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
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/qa"
	"presentation-assistant/internal/tts"
)

type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message is one log entry. Only Audio may change after it is appended.
type Message struct {
	ID    int
	Role  Role
	Text  string
	Audio *audio.Clip
	At    time.Time
}

// Policy decides what happens to a transcript
type Policy string

const (
	// PolicyReview puts the transcript into a draft for the user to confirm
	PolicyReview Policy = "review"
	// PolicyAuto submits the transcript as the question right away
	PolicyAuto Policy = "auto"
)

// State is the exchange status shown next to the log
type State struct {
	Pending   bool
	LastError error
	Draft     string
}

// Config represents orchestrator configuration
type Config struct {
	Language string
	Policy   Policy
}

// Orchestrator owns the message log and the pending flag
type Orchestrator struct {
	transcriber asr.Transcriber
	answerer    qa.Answerer
	speech      tts.Synthesizer
	slide       func() deck.Slide
	config      Config

	mu        sync.Mutex
	messages  []Message
	nextID    int
	pending   bool
	lastErr   error
	draft     string
	observers []func(State)
}

// NewOrchestrator wires the services. slide returns the slide a question is
// about and is read once per submission. speech may be nil; it voices
// answers that arrive without audio.
func NewOrchestrator(transcriber asr.Transcriber, answerer qa.Answerer, speech tts.Synthesizer, slide func() deck.Slide, config Config) *Orchestrator {
	if config.Policy == "" {
		config.Policy = PolicyReview
	}
	return &Orchestrator{
		transcriber: transcriber,
		answerer:    answerer,
		speech:      speech,
		slide:       slide,
		config:      config,
		nextID:      1,
	}
}

// OnChange registers an observer for log and state changes
func (o *Orchestrator) OnChange(f func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, f)
}

// Messages returns a snapshot of the log
func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// State returns the exchange status
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Dismiss clears the last error notice
func (o *Orchestrator) Dismiss() {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = nil
}

// SetDraft replaces the transcript draft, e.g. after user edits
func (o *Orchestrator) SetDraft(text string) {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = text
}

// DiscardDraft drops the transcript draft
func (o *Orchestrator) DiscardDraft() {
	o.SetDraft("")
}

// AttachAudio sets the audio of an existing message. It never adds entries.
func (o *Orchestrator) AttachAudio(id int, clip *audio.Clip) error {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.messages {
		if o.messages[i].ID == id {
			o.messages[i].Audio = clip
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownMessage, id)
}

// SubmitText runs one exchange for a typed question. Answer failures end in
// an apology message and return nil; the cause is kept in State.LastError.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuestion
	}

	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	o.exchange(ctx, text, o.currentSlide())
	return nil
}

// SubmitDraft submits the reviewed transcript as a typed question
func (o *Orchestrator) SubmitDraft(ctx context.Context) error {
	o.mu.Lock()
	draft := strings.TrimSpace(o.draft)
	o.mu.Unlock()

	if draft == "" {
		return ErrNoDraft
	}
	if err := o.SubmitText(ctx, draft); err != nil {
		return err
	}
	o.SetDraft("")
	return nil
}

// SubmitAudio transcribes a recorded question. Under PolicyAuto the
// transcript is submitted immediately; under PolicyReview it becomes the
// draft. The transcript is returned either way.
func (o *Orchestrator) SubmitAudio(ctx context.Context, clip *audio.Clip) (string, error) {
	if err := o.begin(); err != nil {
		return "", err
	}
	defer o.end()

	slide := o.currentSlide()

	if clip.Empty() {
		return "", o.failTranscription("no audio was recorded", nil)
	}

	text, err := o.transcriber.Transcribe(ctx, clip, o.config.Language)
	if err != nil {
		return "", o.failTranscription(err.Error(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", o.failTranscription("no speech recognized", nil)
	}

	if o.config.Policy == PolicyReview {
		o.mu.Lock()
		o.draft = text
		o.mu.Unlock()
		return text, nil
	}

	o.exchange(ctx, text, slide)
	return text, nil
}

func (o *Orchestrator) currentSlide() deck.Slide {
	if o.slide == nil {
		return deck.Slide{}
	}
	return o.slide()
}

func (o *Orchestrator) begin() error {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending {
		return ErrBusy
	}
	o.pending = true
	o.lastErr = nil
	return nil
}

func (o *Orchestrator) end() {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = false
}

func (o *Orchestrator) failTranscription(reason string, cause error) error {
	err := &TranscriptionFailedError{Reason: reason, Err: cause}
	log.Printf("Question discarded: %v", err)

	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	return err
}

// exchange appends the question, asks for an answer and appends the reply
// or an apology. It must run between begin and end.
func (o *Orchestrator) exchange(ctx context.Context, question string, slide deck.Slide) {
	o.appendMessage(RoleUser, question, nil)

	resp, err := o.answerer.Answer(ctx, qa.Question{
		Text:         question,
		SlideContext: slide.Content,
		SlideID:      slide.ID,
		Language:     o.config.Language,
	})
	if err != nil {
		o.apologize(err)
		return
	}

	clip, err := resp.DecodeAudio()
	if err != nil {
		o.apologize(err)
		return
	}

	id := o.appendMessage(RoleAssistant, resp.Answer, clip)
	if clip != nil || o.speech == nil {
		return
	}

	// The text is already visible; voice it and amend the entry.
	spoken, err := o.speech.Synthesize(ctx, resp.Answer, o.config.Language)
	if err != nil {
		log.Printf("Answer stays text-only: %v", err)
		return
	}
	if err := o.AttachAudio(id, spoken); err != nil {
		log.Printf("Failed to attach answer audio: %v", err)
	}
}

func (o *Orchestrator) apologize(cause error) {
	err := &AnswerServiceError{Err: cause}
	log.Printf("Answering failed: %v", err)

	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()

	o.appendMessage(RoleAssistant, qa.Apology(o.config.Language), nil)
}

func (o *Orchestrator) appendMessage(role Role, text string, clip *audio.Clip) int {
	defer o.notify()
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.messages = append(o.messages, Message{
		ID:    id,
		Role:  role,
		Text:  text,
		Audio: clip,
		At:    time.Now(),
	})
	return id
}

func (o *Orchestrator) stateLocked() State {
	return State{
		Pending:   o.pending,
		LastError: o.lastErr,
		Draft:     o.draft,
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	observers := o.observers
	state := o.stateLocked()
	o.mu.Unlock()

	for _, f := range observers {
		f(state)
	}
}

// IsAnswerFailure reports whether err records an apology-ended exchange
func IsAnswerFailure(err error) bool {
	return errors.Is(err, ErrAnswerService)
}
