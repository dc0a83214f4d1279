/*package topology runs the persistent homology analysis of a series of
silica structures.

Each structure is read, turned into an alpha filtration, reduced into
persistence diagrams and summarized by birth-death histograms. Structures are
independent of one another and are analyzed concurrently.
*/
package topology

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Atilaac/SiO2-topology/alpha"
	"github.com/Atilaac/SiO2-topology/geom"
	"github.com/Atilaac/SiO2-topology/io"
	"github.com/Atilaac/SiO2-topology/persistence"
	"github.com/Atilaac/SiO2-topology/render"
)

// Run analyzes every structure named by con. The first error cancels the
// remaining structures and is returned.
func Run(
	ctx context.Context, con *io.PersistentHomologyConfig, logger *zap.Logger,
) error {
	if err := os.MkdirAll(con.Output, 0777); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	workers := con.Workers
	if workers == 0 { workers = runtime.NumCPU() }

	idxs := con.Indices()
	logger.Info("starting analysis",
		zap.Int("structures", len(idxs)), zap.Int("workers", workers),
		zap.String("input", con.Input), zap.String("output", con.Output),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range idxs {
		i := i
		g.Go(func() error {
			s, err := Analyze(ctx, con, i, logger)
			if err != nil {
				return errors.Wrapf(err, "structure %d (%s)", i, con.InputName(i))
			}
			logger.Info("finished structure",
				zap.Int("index", i), zap.Int("atoms", s.Atoms),
				zap.Ints("pairs", s.Pairs), zap.Float64("seconds", s.Seconds),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil { return err }

	if con.Pyplot {
		logger.Info("executing pyplot figures")
		render.ExecutePlots()
	}
	return nil
}

// Analyze processes the structure with index i and writes its outputs. The
// returned summary is also written to <Prefix>_<i>.yaml.
func Analyze(
	ctx context.Context, con *io.PersistentHomologyConfig, i int,
	logger *zap.Logger,
) (*io.Summary, error) {
	start := time.Now()
	logger = logger.With(zap.Int("index", i))

	in, err := readInput(con, i)
	if err != nil { return nil, err }
	logger.Debug("read structure",
		zap.Int("atoms", len(in.Points)), zap.Bools("periodic", in.Cell.Periodic[:]),
	)

	opts := alpha.Options{Squared: con.Squared, Padding: con.Padding}
	f, err := alpha.Build(ctx, in, opts)
	if err != nil { return nil, err }
	counts := f.Counts()
	logger.Debug("built filtration",
		zap.Ints("simplices", counts[:]), zap.Int("padded", f.Padded),
		zap.Int("hidden", f.Hidden),
	)

	pd, err := persistence.Compute(ctx, f)
	if err != nil { return nil, err }

	if err := io.WriteDiagramsFile(con.OutputName(i, ".pd"), pd); err != nil {
		return nil, err
	}
	if con.BoundaryMap {
		err := io.WriteBoundaryMapFile(con.OutputName(i, ".boundary"), f)
		if err != nil { return nil, err }
	}

	s := io.NewSummary(f, pd)
	s.Input, s.Index, s.Pressure = con.InputName(i), i, con.Pressure(i)
	s.Periodic = in.Cell.Periodic[:]
	s.Cell = in.Cell.Lengths[:]

	hw := &histWriter{
		info: render.HistInfo{
			Min: con.HistMin, Max: con.HistMax, Bins: con.HistBins,
			PMax: con.HistPMax,
		},
		pixelsPerBin: con.PixelsPerBin, pyplot: con.Pyplot,
	}
	for _, d := range con.Dims() {
		hs, err := hw.write(pd.Diagram(d), con.Pressure(i),
			con.OutputName(i, fmt.Sprintf("_H%d.png", d)),
			con.OutputName(i, fmt.Sprintf("_H%d_plot.png", d)))
		if err != nil { return nil, err }
		if hs.Skipped > 0 {
			logger.Warn("pairs outside of histogram range",
				zap.Int("dim", d), zap.Int("skipped", hs.Skipped),
			)
		}
		s.Histograms = append(s.Histograms, *hs)
	}

	s.Seconds = time.Since(start).Seconds()
	if err := io.WriteSummaryFile(con.OutputName(i, ".yaml"), s); err != nil {
		return nil, err
	}
	return s, nil
}

// readInput reads structure i and resolves its cell.
func readInput(con *io.PersistentHomologyConfig, i int) (*alpha.Input, error) {
	st, err := io.ReadXYZFile(con.InputName(i))
	if err != nil { return nil, err }

	ws, err := st.Weights(con.Radii())
	if err != nil { return nil, err }

	cell := st.Cell
	if !st.HasCell {
		if override, ok := con.CellOverride(); ok {
			cell = override
		} else if con.Periodic {
			return nil, errors.New(
				"structure has no Lattice and CellX, CellY and CellZ are unset",
			)
		}
	}
	if !con.Periodic { cell.Periodic = [3]bool{} }

	pts := make([]geom.Vec, st.Len())
	for j, p := range st.Positions { pts[j] = cell.Wrap(p) }

	return &alpha.Input{Points: pts, Weights: ws, Cell: cell}, nil
}
