package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/snapstudio/snapstudio/internal/eval/dataset"
	"github.com/snapstudio/snapstudio/internal/models"
)

type inspectOptions struct {
	limit       int
	interactive bool
	showSamples bool
	checkImages bool
	download    dataset.DownloadConfig
}

func executeInspect(ctx context.Context, w io.Writer, in io.Reader, datasetPath string, opts inspectOptions) error {
	loader, err := dataset.LoadOrDownload(ctx, datasetPath, opts.download)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	samples, err := loader.LoadSample(opts.limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d samples from %s\n", len(samples), datasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	writeDistribution(w, samples)
	fmt.Fprintln(w)

	if !opts.showSamples {
		return nil
	}

	reader := bufio.NewReader(in)

	for i, s := range samples {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "SAMPLE %d/%d\n", i+1, len(samples))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "ID:     %s\n", s.ID)
		fmt.Fprintf(w, "Label:  %s\n", s.Label)
		fmt.Fprintf(w, "Group:  %s\n", s.GroupKey())
		fmt.Fprintf(w, "Image:  %s\n", truncate(s.Image, 70))

		if opts.checkImages {
			ref, err := s.ImageRef(loader.BaseDir())
			switch {
			case err != nil:
				fmt.Fprintf(w, "Status: unreadable (%v)\n", err)
			case strings.HasPrefix(ref, "data:"):
				fmt.Fprintf(w, "Status: ok, %s\n", ref[:strings.Index(ref, ",")])
			default:
				fmt.Fprintln(w, "Status: remote")
			}
		}
		fmt.Fprintln(w)

		if opts.interactive {
			fmt.Fprint(w, "Press Enter to continue to next sample (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}

func writeDistribution(w io.Writer, samples []dataset.Sample) {
	counts := make(map[models.Category]int)
	groups := make(map[string]struct{})
	for _, s := range samples {
		c, _ := s.Category()
		counts[c]++
		groups[s.GroupKey()] = struct{}{}
	}

	fmt.Fprintf(w, "Products: %d\n", len(groups))
	fmt.Fprintln(w, "Label distribution:")
	for _, c := range models.Categories() {
		share := 0.0
		if len(samples) > 0 {
			share = float64(counts[c]) / float64(len(samples)) * 100
		}
		fmt.Fprintf(w, "  %-10s %5d (%5.1f%%)\n", c, counts[c], share)
	}
}
