package utils

import "github.com/schollz/progressbar/v3"

// Standard progress bar descriptions
const (
	DescCloning    = "Cloning"
	DescTraversing = "Traversing"
	DescRendering  = "Rendering"
)

// NewProgressBar creates a consistently styled progress bar. A negative total
// selects indeterminate spinner mode.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	} else {
		opts = append(opts,
			progressbar.OptionShowIts(),
		)
	}

	return progressbar.NewOptions(total, opts...)
}
