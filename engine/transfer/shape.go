package transfer

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
)

// GridSize checks that n tiles form a square grid of the given side length and returns
// that length. A size <= 0 is inferred from n, which must then be a perfect square.
// The checks divide rather than multiply so that no size can wrap the product.
//
// Parameters:
//   - n: the number of tiles supplied
//   - size: the declared side length, or <= 0 to infer it
//
// Returns:
//   - int: the side length
//   - error: ErrShapeMismatch wrapped with the offending counts
func GridSize(n, size int) (int, error) {
	if size <= 0 {
		side := int(math.Sqrt(float64(n)))
		// float rounding can land one off for large n
		for side > 1 && n/side < side {
			side--
		}
		for n > 0 && n/(side+1) >= side+1 {
			side++
		}
		if side <= 0 || n%side != 0 || n/side != side {
			return 0, fmt.Errorf("grid: %w: %d tiles is not a square", diagnostics.ErrShapeMismatch, n)
		}
		return side, nil
	}
	if n%size != 0 || n/size != size {
		return 0, fmt.Errorf("grid: %w: %d tiles for size %d", diagnostics.ErrShapeMismatch, n, size)
	}
	return size, nil
}

// CheckRecords reports whether n values hold exactly count entity records of RecordWidth.
func CheckRecords(n, count int) error {
	if count < 0 || n%RecordWidth != 0 || n/RecordWidth != count {
		return fmt.Errorf("entities: %w: %d values for %d records", diagnostics.ErrShapeMismatch, n, count)
	}
	return nil
}
