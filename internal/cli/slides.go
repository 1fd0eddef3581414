// slides.go implements "presenter slides", a plain listing of the deck.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"presentation-assistant/internal/deck"
)

var (
	slideID       int
	showNarration bool
)

var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "List the slides of the deck",
	Long: `Fetch the deck from the presentation API and print its slides.
With --id, print a single slide in full.`,
	RunE: runSlides,
}

func init() {
	slidesCmd.Flags().IntVar(&slideID, "id", 0, "Print only the slide with this id")
	slidesCmd.Flags().BoolVar(&showNarration, "narration", false, "Include the narration text")
}

func runSlides(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := deck.NewClient(cfg.API.BaseURL)
	ctx := context.Background()

	if slideID > 0 {
		slide, err := client.Slide(ctx, slideID)
		if err != nil {
			return err
		}
		printSlide(os.Stdout, slide)
		return nil
	}

	d, err := client.Load(ctx, cfg.Presentation.Language, cfg.Presentation.Deck)
	if err != nil {
		return err
	}
	printDeck(os.Stdout, d, showNarration)
	return nil
}

func printDeck(w io.Writer, d *deck.Deck, narration bool) {
	name := d.Name()
	if name == "" {
		name = "(default deck)"
	}
	fmt.Fprintf(w, "%s [%s], %d slides\n\n", name, d.Language(), d.Len())

	for _, s := range d.Slides() {
		fmt.Fprintf(w, "  %3d  %s\n", s.ID, s.Title)
		if narration {
			fmt.Fprintf(w, "       %s\n", oneLine(s.SpeakText(), 100))
		}
	}
}

func printSlide(w io.Writer, s deck.Slide) {
	fmt.Fprintf(w, "Slide %d: %s\n\n%s\n", s.ID, s.Title, s.Content)
	if s.Narration != "" && s.Narration != s.Content {
		fmt.Fprintf(w, "\nNarration:\n%s\n", s.Narration)
	}
	if s.Notes != "" {
		fmt.Fprintf(w, "\nNotes:\n%s\n", s.Notes)
	}
	if s.ImageURL != "" {
		fmt.Fprintf(w, "\nImage: %s\n", s.ImageURL)
	}
}

// oneLine collapses whitespace and truncates to max runes
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
