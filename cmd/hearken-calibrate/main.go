// Command hearken-calibrate prints the microphone's RMS volume once per
// second. Run it in a quiet room to pick a volume_threshold: the printed
// numbers show the noise floor, and the threshold should sit just above it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/capture"
	"github.com/arimelio/hearken/pkg/provider/capture/alsa"
)

// barWidth is the character width of the printed level bar.
const barWidth = 40

// barScale maps an RMS of this value (or more) to a full bar. Typical speech
// sits around 0.05 to 0.2, so a 0.25 full scale keeps quiet rooms readable.
const barScale = 0.25

func main() {
	os.Exit(run())
}

func run() int {
	sampleRate := flag.Int("rate", 22050, "capture sample rate in Hz")
	device := flag.String("device", "", "ALSA capture device (empty for the system default)")
	flag.Parse()

	var opts []alsa.Option
	if *device != "" {
		opts = append(opts, alsa.WithDevice(*device))
	}
	source, err := alsa.New(capture.Config{
		SampleRate:    *sampleRate,
		FrameDuration: time.Second,
	}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hearken-calibrate: %v\n", err)
		return 1
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("CALIBRATION MODE: stay silent!")
	fmt.Println("Watch the volume numbers; set volume_threshold just above them.")
	fmt.Println(strings.Repeat("=", 50))

	for {
		frame, err := source.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nstopped")
				return 0
			}
			slog.Error("capture error", "err", err)
			return 1
		}
		printLevel(audio.RMS(frame.Samples))
	}
}

// printLevel renders one RMS reading with a bar for at-a-glance comparison.
func printLevel(rms float64) {
	filled := int(rms / barScale * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Printf("volume %.5f [%s]\n", rms, bar)
}
