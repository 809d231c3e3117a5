package train

import "sort"

// LabelCodec maps raw phenotype label values onto contiguous class
// indices [0, numClasses) and back. The class count it derives is the
// classifier's output dimensionality.
type LabelCodec struct {
	values []int
	index  map[int]int
}

// NewLabelCodec builds a codec over the distinct values of labels, in
// ascending order.
func NewLabelCodec(labels []int) *LabelCodec {
	index := make(map[int]int)
	var values []int
	for _, v := range labels {
		if _, seen := index[v]; !seen {
			index[v] = 0
			values = append(values, v)
		}
	}
	sort.Ints(values)
	for i, v := range values {
		index[v] = i
	}
	return &LabelCodec{values: values, index: index}
}

// NumClasses returns the number of distinct label values.
func (c *LabelCodec) NumClasses() int { return len(c.values) }

// Encode maps raw label values to class indices.
func (c *LabelCodec) Encode(labels []int) []int {
	out := make([]int, len(labels))
	for i, v := range labels {
		out[i] = c.index[v]
	}
	return out
}

// Decode maps class indices back to raw label values.
func (c *LabelCodec) Decode(classes []int) []int {
	out := make([]int, len(classes))
	for i, cls := range classes {
		out[i] = c.values[cls]
	}
	return out
}
