// ask.go implements "presenter ask", a single question outside a presentation.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"presentation-assistant/internal/asr"
	"presentation-assistant/internal/conversation"
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/tts"
)

var (
	askSlide int
	askAudio string
	askOut   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question about a slide",
	Long: `Ask a question, typed as arguments or recorded in a WAV/MP3 file, and
print the answer. With --slide the slide's content is sent as context.
With --out the spoken answer is saved to a file.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askSlide, "slide", 0, "Slide id to ask about")
	askCmd.Flags().StringVar(&askAudio, "audio", "", "Recorded question (.wav or .mp3)")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "Save the spoken answer to this file")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && askAudio == "" {
		return fmt.Errorf("provide a question or --audio")
	}
	if askOut != "" {
		if err := tts.ValidateFilePath(askOut); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	lang := cfg.Presentation.Language

	var slide deck.Slide
	if askSlide > 0 {
		slide, err = svc.deck.Slide(ctx, askSlide)
		if err != nil {
			return err
		}
	}

	conv := conversation.NewOrchestrator(svc.asr, svc.qa, nil,
		func() deck.Slide { return slide },
		conversation.Config{Language: lang, Policy: conversation.PolicyAuto})

	if askAudio != "" {
		clip, err := asr.ReadAudioFile(askAudio)
		if err != nil {
			return err
		}
		text, err := conv.SubmitAudio(ctx, clip)
		if err != nil {
			return err
		}
		fmt.Printf("Q: %s\n", text)
	} else if err := conv.SubmitText(ctx, question); err != nil {
		return err
	}

	msgs := conv.Messages()
	answer := msgs[len(msgs)-1]
	fmt.Printf("A: %s\n", answer.Text)

	if err := conv.State().LastError; err != nil {
		return err
	}

	if askOut == "" {
		return nil
	}
	if !answer.Audio.Empty() {
		if filepath.Ext(askOut) == "" {
			askOut += tts.GetFileExtensionForFormat(answer.Audio.Format)
		}
		if err := tts.SaveClip(answer.Audio, askOut); err != nil {
			return err
		}
	} else if err := svc.speech.SynthesizeToFile(ctx, answer.Text, lang, askOut); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved answer audio to %s\n", askOut)
	return nil
}
