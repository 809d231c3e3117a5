package train_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/train"
)

func TestLabelCodec(t *testing.T) {
	t.Parallel()

	codec := train.NewLabelCodec([]int{5, 2, 5, 9, 2})
	assert.Equal(t, 3, codec.NumClasses())

	encoded := codec.Encode([]int{2, 5, 9})
	assert.Equal(t, []int{0, 1, 2}, encoded)

	decoded := codec.Decode([]int{2, 0, 1})
	assert.Equal(t, []int{9, 2, 5}, decoded)
}

func TestPredictionsWriteCSV(t *testing.T) {
	t.Parallel()

	p := &train.Predictions{
		Actual:    []int{1, 2, 1},
		Predicted: []int{1, 1, 2},
	}

	var buf bytes.Buffer
	require.NoError(t, p.WriteCSV(&buf))
	assert.Equal(t, "Actual,Predicted\n1,1\n2,1\n1,2\n", buf.String())

	assert.False(t, p.IsEmpty())
	assert.True(t, (&train.Predictions{}).IsEmpty())
	var nilPreds *train.Predictions
	assert.True(t, nilPreds.IsEmpty())
}
