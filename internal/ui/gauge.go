package ui

import (
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const (
	gaugeTotal = 100
	// gaugeCeiling is where the synthetic animation parks until the real
	// command finishes; the remaining distance fills on completion.
	gaugeCeiling = 90
	gaugeTick    = 200 * time.Millisecond
)

// GaugePresenter renders each step as an animated progress bar. The bar
// percentage is synthetic: the underlying command runs in the background
// and the caller still blocks until its real exit status is observed.
type GaugePresenter struct {
	*PlainPresenter
}

// NewGaugePresenter creates a gauge presenter on stdout.
func NewGaugePresenter(assumeYes bool) *GaugePresenter {
	return &GaugePresenter{PlainPresenter: NewPlainPresenter(assumeYes)}
}

// RunStep animates a bar while fn runs backgrounded, then returns fn's
// real error.
func (g *GaugePresenter) RunStep(name string, fn func() error) error {
	progress := mpb.New(mpb.WithOutput(os.Stdout), mpb.WithWidth(40))

	bar := progress.AddBar(gaugeTotal,
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	ticker := time.NewTicker(gaugeTick)
	defer ticker.Stop()

	var err error
wait:
	for {
		select {
		case err = <-done:
			break wait
		case <-ticker.C:
			if bar.Current() < gaugeCeiling {
				bar.Increment()
			}
		}
	}

	// Fill to 100% on success so the bar never ends mid-flight; an error
	// aborts the bar where it stands.
	if err == nil {
		bar.SetCurrent(gaugeTotal)
	} else {
		bar.Abort(false)
	}
	progress.Wait()

	return err
}
