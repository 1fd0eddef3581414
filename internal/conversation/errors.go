package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects a submission while another exchange is pending
	ErrBusy = errors.New("an exchange is already in progress")
	// ErrTranscriptionFailed matches every *TranscriptionFailedError
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrAnswerService matches every *AnswerServiceError
	ErrAnswerService = errors.New("answer service failed")
	// ErrEmptyQuestion rejects blank typed questions
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrUnknownMessage is returned by AttachAudio for ids not in the log
	ErrUnknownMessage = errors.New("no such message")
	// ErrNoDraft is returned when there is no transcript to submit
	ErrNoDraft = errors.New("no transcript draft")
)

// TranscriptionFailedError aborts an exchange before anything is logged
type TranscriptionFailedError struct {
	Reason string
	Err    error
}

func (e *TranscriptionFailedError) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Reason)
}

func (e *TranscriptionFailedError) Unwrap() error { return e.Err }

func (e *TranscriptionFailedError) Is(target error) bool { return target == ErrTranscriptionFailed }

// AnswerServiceError records why an exchange ended with an apology
type AnswerServiceError struct {
	Err error
}

func (e *AnswerServiceError) Error() string {
	return fmt.Sprintf("answer service failed: %v", e.Err)
}

func (e *AnswerServiceError) Unwrap() error { return e.Err }

func (e *AnswerServiceError) Is(target error) bool { return target == ErrAnswerService }
