package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/loopwork/footfall/internal/stats"
)

// RunConfig holds the generator parameters shown in the header.
type RunConfig struct {
	Targets    []string      // resolved target names
	Workers    int           // total workers across all targets
	Interval   time.Duration // summary window length
	Duration   time.Duration // run duration (0 = unbounded)
	MaxRPS     int           // global request cap (0 = unlimited)
	Resolver   string        // resolver mode
	ConfigFile string        // path to config file if used
}

// Dashboard renders a live terminal UI over the collector totals.
type Dashboard struct {
	collector    *stats.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	sparklines     *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	rpsGauge       *widgets.Gauge
	failureList    *widgets.List
	targetList     *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	rpsHistory     []float64
	startTime      time.Time
	runDuration    time.Duration
	runConfig      RunConfig
}

// New creates a new Dashboard and takes over the terminal.
func New(collector *stats.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		rpsHistory:     make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	latency := widgets.NewSparkline()
	latency.Title = "Mean latency (ms)"
	latency.LineColor = ui.ColorGreen
	latency.Data = []float64{0}

	rps := widgets.NewSparkline()
	rps.Title = "Requests/sec"
	rps.LineColor = ui.ColorBlue
	rps.Data = []float64{0}

	d.sparklines = widgets.NewSparklineGroup(latency, rps)
	d.sparklines.Title = "Trend"
	d.sparklines.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency"
	d.latencyPara.Text = "Min:  0ms\nMean: 0ms\nP50:  0ms\nP90:  0ms\nP99:  0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Requests Per Second"
	d.rpsGauge.Percent = 0
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"[No failures](fg:green)"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.targetList = widgets.NewList()
	d.targetList.Title = "Targets"
	d.targetList.Rows = []string{"Awaiting data"}
	d.targetList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.targetList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Traffic Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Totals"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.sparklines),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.6, d.targetList),
			ui.NewCol(0.4, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// FinalStats returns the lifetime totals after the dashboard has stopped.
func (d *Dashboard) FinalStats() stats.Stats {
	return d.collector.Stats(d.runDuration)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	s := d.collector.Stats(elapsed)

	if s.MeanLatencyMS > 0 {
		d.latencyHistory = appendHistory(d.latencyHistory, float64(s.MeanLatencyMS))
		d.sparklines.Sparklines[0].Data = d.latencyHistory
		d.sparklines.Sparklines[0].Title = fmt.Sprintf(
			"Mean latency %dms | min %dms | max %dms",
			s.MeanLatencyMS, s.MinLatencyMS, s.MaxLatencyMS,
		)
	}
	if s.RequestsPerSec > 0 {
		d.rpsHistory = appendHistory(d.rpsHistory, s.RequestsPerSec)
		d.sparklines.Sparklines[1].Data = d.rpsHistory
		d.sparklines.Sparklines[1].Title = fmt.Sprintf("Requests/sec %.1f", s.RequestsPerSec)
	}

	currentRPS := s.RequestsPerSec
	maxRPS := 100.0
	if currentRPS > maxRPS {
		maxRPS = currentRPS
	}
	rpsPercent := int((currentRPS / maxRPS) * 100)
	if rpsPercent > 100 {
		rpsPercent = 100
	}
	d.rpsGauge.Percent = rpsPercent
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS", currentRPS)

	okRate := 0.0
	if s.Total > 0 {
		okRate = (float64(s.OK) / float64(s.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Targets: %s\n%s\nElapsed: %s | Total: %d | OK: %.1f%%",
		strings.Join(d.runConfig.Targets, ", "),
		d.formatRunParams(),
		elapsed.Round(time.Second),
		s.Total,
		okRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nOK (2xx):          %d\nClient Errors:     %d\nServer Errors:     %d\nTransport Failed:  %d\nCurrent RPS:       %.2f",
		s.Total, s.OK, s.ClientErr, s.ServerErr, s.Failed, currentRPS,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %dms\nMean: %dms\nP50:  %dms\nP90:  %dms\nP99:  %dms",
		s.MinLatencyMS, s.MeanLatencyMS, s.P50LatencyMS, s.P90LatencyMS, s.P99LatencyMS,
	)

	d.failureList.Rows = formatFailureRows(s)
	d.updateTargetList(s)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) updateTargetList(s stats.Stats) {
	if len(s.PerTarget) == 0 {
		d.targetList.Rows = []string{"[No target data](fg:green)"}
		return
	}
	type targetRow struct {
		name   string
		totals stats.TargetTotals
	}
	rows := make([]targetRow, 0, len(s.PerTarget))
	for name, totals := range s.PerTarget {
		rows = append(rows, targetRow{name: name, totals: totals})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].totals.Count == rows[j].totals.Count {
			return rows[i].name < rows[j].name
		}
		return rows[i].totals.Count > rows[j].totals.Count
	})
	formatted := make([]string, 0, len(rows))
	for _, entry := range rows {
		share := 0.0
		if s.Total > 0 {
			share = (float64(entry.totals.Count) / float64(s.Total)) * 100
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | req %d | ok %d | 4xx %d | 5xx %d | fail %d",
			entry.name,
			share,
			entry.totals.Count,
			entry.totals.OK,
			entry.totals.ClientErr,
			entry.totals.ServerErr,
			entry.totals.Failed,
		))
	}
	d.targetList.Rows = formatted
}

func formatFailureRows(s stats.Stats) []string {
	var rows []string
	if s.ClientErr > 0 {
		rows = append(rows, fmt.Sprintf("[4xx](fg:yellow) %d", s.ClientErr))
	}
	if s.ServerErr > 0 {
		rows = append(rows, fmt.Sprintf("[5xx](fg:red) %d", s.ServerErr))
	}
	if s.Failed > 0 {
		rows = append(rows, fmt.Sprintf("[transport](fg:red) %d", s.Failed))
	}
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	return rows
}

func appendHistory(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > 100 {
		history = history[1:]
	}
	return history
}

// formatRunParams formats the generator parameters for the header line.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Workers > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Workers))
	}

	if d.runConfig.Interval > 0 {
		parts = append(parts, fmt.Sprintf("Window: %s", d.runConfig.Interval))
	}

	if d.runConfig.MaxRPS > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.MaxRPS))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.runConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.runConfig.Duration))
	}

	if d.runConfig.Resolver != "" && d.runConfig.Resolver != "auto" {
		parts = append(parts, fmt.Sprintf("Resolver: %s", d.runConfig.Resolver))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
