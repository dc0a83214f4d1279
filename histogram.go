package topology

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Atilaac/SiO2-topology/io"
	"github.com/Atilaac/SiO2-topology/persistence"
	"github.com/Atilaac/SiO2-topology/render"
)

// histWriter bins diagrams and writes their images.
type histWriter struct {
	info         render.HistInfo
	pixelsPerBin int
	pyplot       bool
}

// write bins the finite pairs of diag into a joint PNG at fname and, if
// pyplot is set, queues a figure at plotName.
func (hw *histWriter) write(
	diag *persistence.Diagram, pressure float64, fname, plotName string,
) (*io.HistSummary, error) {
	h, err := render.NewHist2D(hw.info)
	if err != nil { return nil, err }
	if err := h.Add(diag.Births, diag.Deaths); err != nil { return nil, err }

	f, err := os.Create(fname)
	if err != nil { return nil, err }
	opts := render.DefaultJointOptions()
	opts.PixelsPerBin = hw.pixelsPerBin
	err = render.WriteJointPNG(f, h, opts)
	if cerr := f.Close(); err == nil { err = cerr }
	if err != nil { return nil, errors.Wrapf(err, "writing %s", fname) }

	if hw.pyplot {
		label := render.PlotLabel{Dim: diag.Dim, Pressure: pressure}
		render.PlotDiagram(diag.Births, diag.Deaths, hw.info, label, plotName)
	}

	return &io.HistSummary{
		Dim: diag.Dim, Binned: h.Total, Skipped: h.Skipped,
		Level: h.PMaxLevel(), Image: fname,
	}, nil
}

// Rehistogram re-bins diagram files written by Run. Structures are not
// re-read, so this is cheap compared to Run.
func Rehistogram(
	ctx context.Context, con *io.HistogramConfig, logger *zap.Logger,
) error {
	if err := os.MkdirAll(con.Output, 0777); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	hw := &histWriter{
		info: render.HistInfo{
			Min: con.HistMin, Max: con.HistMax, Bins: con.HistBins,
			PMax: con.HistPMax,
		},
		pixelsPerBin: con.PixelsPerBin, pyplot: con.Pyplot,
	}

	for _, i := range con.Indices() {
		if err := ctx.Err(); err != nil { return err }

		pd, err := io.ReadDiagrams(con.InputName(i))
		if err != nil { return err }

		for _, d := range con.Dims() {
			hs, err := hw.write(pd.Diagram(d), con.Pressure(i),
				con.OutputName(i, fmt.Sprintf("_H%d.png", d)),
				con.OutputName(i, fmt.Sprintf("_H%d_plot.png", d)))
			if err != nil { return err }
			logger.Info("wrote histogram",
				zap.Int("index", i), zap.Int("dim", d),
				zap.Int("binned", hs.Binned), zap.Int("skipped", hs.Skipped),
				zap.Int("pmax_level", hs.Level),
			)
		}
	}

	if con.Pyplot { render.ExecutePlots() }
	return nil
}
