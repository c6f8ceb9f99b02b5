package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"flownet/model"
)

var ErrNoData = errors.New("report: no data")

// 图片尺寸
const (
	width  = 16 * vg.Centimeter
	height = 10 * vg.Centimeter
)

// 从历史结果中取出一个观测量的时间序列
func Series(history []model.Snapshot, index int) (plotter.XYs, error) {
	if len(history) == 0 {
		return nil, ErrNoData
	}
	xys := make(plotter.XYs, 0, len(history))
	for _, s := range history {
		if index < 0 || index >= len(s.Values) {
			return nil, fmt.Errorf("%w: quantity %d not in snapshot at t=%g", ErrNoData, index, s.Time)
		}
		xys = append(xys, plotter.XY{X: s.Time, Y: s.Values[index]})
	}
	return xys, nil
}

// Trend 把若干观测量随时间的变化画成 PNG 写入 w
func Trend(w io.Writer, history []model.Snapshot, quantities []model.QuantityInfo, indices ...int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no quantity selected", ErrNoData)
	}
	p := plot.New()
	p.X.Label.Text = "t [s]"
	p.Add(plotter.NewGrid())

	units := make(map[string]bool)
	for i, index := range indices {
		if index < 0 || index >= len(quantities) {
			return fmt.Errorf("%w: quantity %d of %d", ErrNoData, index, len(quantities))
		}
		q := quantities[index]
		xys, err := Series(history, index)
		if err != nil {
			return err
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("quantity %s.%s: %w", q.Element, q.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s.%s", q.Element, q.Name), line)
		units[q.Unit] = true
	}
	if len(indices) == 1 {
		q := quantities[indices[0]]
		p.Title.Text = fmt.Sprintf("%s %s", q.Element, q.Name)
		p.Y.Label.Text = fmt.Sprintf("%s [%s]", q.Name, q.Unit)
	} else if len(units) == 1 {
		for u := range units {
			p.Y.Label.Text = fmt.Sprintf("[%s]", u)
		}
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render trend: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write trend: %w", err)
	}
	return nil
}
