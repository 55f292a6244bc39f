package flow

import (
	"context"
	"fmt"
)

// GPUCheck runs hardware detection standalone and reports the result.
// Exit 0 means an NVIDIA GPU is present.
func (f *Flow) GPUCheck(ctx context.Context) int {
	det, err := f.gpu.Detect(ctx, false)
	if err != nil {
		f.presenter.Error("GPU detection failed: " + err.Error())
		return 1
	}

	if !det.Present {
		f.presenter.Warning("No NVIDIA GPU detected on the PCI bus.")
		return 1
	}

	f.presenter.Success(fmt.Sprintf("NVIDIA GPU detected (class: %s).", det.Class))
	return 0
}

// SessionCheck reports the detected session mode. Always exits 0; the
// classification is informational.
func (f *Flow) SessionCheck(ctx context.Context) int {
	mode := f.session.Detect(ctx)
	f.presenter.Info(fmt.Sprintf("Session classified as %s.", mode))

	if mode.IsGraphical() {
		f.presenter.Warning("Driver removal is refused in this session; switch to a text console first.")
	}
	return 0
}
