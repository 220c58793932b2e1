package marketdata

import "errors"

// ErrNoHistory means IV rank was requested without any historical values.
var ErrNoHistory = errors.New("no volatility history")

// IVRank places the current implied volatility within its historical range
// as a percentage: 0 at the historical low, 100 at the high. A flat history
// ranks 0.
func IVRank(current float64, history []float64) (float64, error) {
	if len(history) == 0 {
		return 0, ErrNoHistory
	}

	low, high := history[0], history[0]
	for _, v := range history[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}

	if high == low {
		return 0, nil
	}
	return (current - low) / (high - low) * 100, nil
}
