// play.go implements "presenter play", the narrated presentation.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/session"
	"presentation-assistant/internal/state"
	"presentation-assistant/internal/tui"
	"presentation-assistant/internal/voice"
)

var headless bool

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Present the deck with narration",
	Long: `Load the deck, narrate each slide and advance when its narration ends.
On a terminal an interactive view accepts typed and spoken questions;
otherwise, or with --headless, slides are narrated and logged until
interrupted.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&headless, "headless", false, "Narrate without the interactive view")
}

func runPlay(cmd *cobra.Command, args []string) error {
	interactive := IsTTY() && !headless

	closeLog, err := setupLogging(interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer func() { log.Printf("Speech cache: %v", svc.speech.GetCacheStats()) }()

	narrator, err := audio.NewPlayer(cfg.Audio.SampleRate)
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}
	defer narrator.Close()

	// Answers get their own stream; without it they stay text-only.
	var answers state.Player
	if p, err := audio.NewPlayer(cfg.Audio.SampleRate); err != nil {
		log.Printf("Answer audio disabled: %v", err)
	} else {
		defer p.Close()
		answers = p
	}

	recorder := voice.NewRecorder(voice.OpenDefault(cfg.Audio.SampleRate), voice.Config{
		MaxDuration: cfg.MaxRecording(),
	})

	presenter := session.NewPresenter(session.Services{
		Deck:        svc.deck,
		Narration:   svc.narration,
		Transcriber: svc.asr,
		Answerer:    svc.qa,
		Speech:      svc.speech,
		Narrator:    narrator,
		Answers:     answers,
		Recorder:    recorder,
	}, presenterConfig(cfg))
	defer presenter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := presenter.Load(ctx); err != nil {
		return fmt.Errorf("loading presentation: %w", err)
	}

	if interactive {
		return tui.Run(ctx, presenter)
	}
	return runHeadless(ctx, presenter)
}

// runHeadless narrates the deck and prints each slide as it comes up
func runHeadless(ctx context.Context, presenter *session.Presenter) error {
	changed := make(chan struct{}, 1)
	presenter.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := presenter.Start(ctx); err != nil {
		return err
	}

	lastToken := uint64(0)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopped.")
			return nil
		case <-changed:
			status := presenter.Snapshot().Playback
			if status.Token != lastToken {
				lastToken = status.Token
				fmt.Printf("[%d/%d] %s\n", status.Index+1, status.Total, status.Slide.Title)
			}
			if status.Mode == state.ModePaused && status.Index == status.Total-1 && !status.Loading {
				fmt.Println("End of presentation.")
				return nil
			}
		}
	}
}
