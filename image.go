package zml

import "fmt"

// TypeImage is the structured type of a column whose values are images
// (image.Image).  Height and Width are zero when the dimensions vary by row.
// Image values are opaque to generic code: they cannot be converted,
// vectorized or compared.
type TypeImage struct {
	Height int
	Width  int
}

func (t *TypeImage) ID() int {
	return IDImage
}

// Tag returns the runtime tag of the structured type.
func (t *TypeImage) Tag() string {
	return "Image"
}

func (t *TypeImage) String() string {
	if t.Height == 0 || t.Width == 0 {
		return "image"
	}
	return fmt.Sprintf("image<%dx%d>", t.Height, t.Width)
}
