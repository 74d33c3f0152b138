package gmm

import "fmt"

// Category is the index of one of the three mixture components.
// Ambiguous marks a point that could not be assigned to a single component.
type Category int

const (
	ShortMultiple Category = iota
	MediumMultiple
	LongMultiple

	// Ambiguous is returned by Assign when the maximum score is tied.
	Ambiguous Category = -1
)

// NumCategories is the fixed number of mixture components.
const NumCategories = 3

// Ok reports whether c refers to a real component and is safe to use as an index.
func (c Category) Ok() bool {
	return c >= 0 && c < NumCategories
}

// String method for Category enables easy writing with the fmt package.
func (c Category) String() string {
	switch c {
	case ShortMultiple:
		return "short"
	case MediumMultiple:
		return "medium"
	case LongMultiple:
		return "long"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Assign returns the category with the strictly largest score. If two or more scores
// tie for the maximum the point is not assigned and Ambiguous is returned.
func Assign(scores [NumCategories]float64) Category {
	best := Category(0)
	tied := false
	for k := 1; k < NumCategories; k++ {
		switch {
		case scores[k] > scores[best]:
			best = Category(k)
			tied = false
		case scores[k] == scores[best]:
			tied = true
		}
	}
	if tied {
		return Ambiguous
	}
	return best
}
