package report

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/model"
)

func history() ([]model.Snapshot, []model.QuantityInfo) {
	var h []model.Snapshot
	for i := 0; i < 20; i++ {
		t := float64(i) * 60
		h = append(h, model.Snapshot{Time: t, Values: []float64{0.1, 313.15 + 0.5*float64(i), 300 - 0.2*float64(i)}})
	}
	q := []model.QuantityInfo{
		{Index: 0, Element: "pump", Name: "MassFlux", Unit: "kg/s"},
		{Index: 1, Element: "pipe", Name: "OutflowTemperature", Unit: "K"},
		{Index: 2, Element: "node(3)", Name: "Temperature", Unit: "K"},
	}
	return h, q
}

func TestSeries(t *testing.T) {
	h, _ := history()
	xys, err := Series(h, 1)
	require.NoError(t, err)
	require.Len(t, xys, 20)
	assert.Equal(t, 60.0, xys[1].X)
	assert.InDelta(t, 313.65, xys[1].Y, 1e-9)

	_, err = Series(h, 3)
	assert.True(t, errors.Is(err, ErrNoData))
	_, err = Series(nil, 0)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestTrend(t *testing.T) {
	h, q := history()
	var buf bytes.Buffer
	require.NoError(t, Trend(&buf, h, q, 1, 2))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	buf.Reset()
	require.NoError(t, Trend(&buf, h, q, 0))
	assert.NotZero(t, buf.Len())
}

func TestTrendInvalid(t *testing.T) {
	h, q := history()
	var buf bytes.Buffer
	assert.True(t, errors.Is(Trend(&buf, h, q), ErrNoData))
	assert.True(t, errors.Is(Trend(&buf, h, q, 7), ErrNoData))
	assert.True(t, errors.Is(Trend(&buf, nil, q, 1), ErrNoData))
}
