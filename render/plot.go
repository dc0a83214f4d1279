package render

import (
	"fmt"
	"sync"

	plt "github.com/phil-mansfield/pyplot"
)

// pyplot keeps one global script, so figures are serialized.
var pltMu sync.Mutex

// PlotLabel is the annotation of a diagram figure.
type PlotLabel struct {
	Dim      int
	Pressure float64
}

// PlotDiagram queues a matplotlib figure of a persistence diagram with the
// same limits as info and saves it to fname once ExecutePlots runs.
func PlotDiagram(
	births, deaths []float64, info HistInfo, label PlotLabel, fname string,
) {
	pltMu.Lock()
	defer pltMu.Unlock()

	lim := []float64{info.Min, info.Max}

	plt.Figure(plt.FigSize(5, 5))
	plt.Plot(births, deaths, ",", plt.C("#000075"))
	plt.Plot(lim, lim, ":k", plt.LW(2.5))
	plt.XLabel(`Birth ${\rm (\AA^2)}$`, plt.FontSize(14))
	plt.YLabel(`Death ${\rm (\AA^2)}$`, plt.FontSize(14))
	plt.XLim(info.Min, info.Max)
	plt.YLim(info.Min, info.Max)
	plt.Title(fmt.Sprintf(`H$_{%d}$, %g GPa`, label.Dim, label.Pressure))
	plt.SaveFig(fname)
}

// ExecutePlots runs every queued figure and clears the queue.
func ExecutePlots() {
	pltMu.Lock()
	defer pltMu.Unlock()

	plt.Execute()
	plt.Reset()
}
