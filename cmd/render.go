package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/achilleasa/lumen/asset/scene/reader"
	"github.com/achilleasa/lumen/config"
	"github.com/achilleasa/lumen/renderer"
	"github.com/achilleasa/lumen/tracer"
	"github.com/achilleasa/lumen/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	con, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	// Load scene
	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	sc.Camera, err = con.BuildCamera(sc.Camera)
	if err != nil {
		return err
	}
	shading, err := con.BuildShading()
	if err != nil {
		return err
	}

	tracers, err := createTracers(con)
	if err != nil {
		return err
	}

	// Create renderer
	opts := renderer.Options{
		FrameW:  uint32(con.Render.Width),
		FrameH:  uint32(con.Render.Height),
		Jitter:  con.Render.Jitter,
		Shading: shading,
	}
	r, err := renderer.NewDefault(sc, tracer.PerfectScheduler(), tracers, opts)
	if err != nil {
		for _, tr := range tracers {
			tr.Close()
		}
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("rendering %dx%d frame using %d tracer(s)", opts.FrameW, opts.FrameH, len(tracers))
	if err = r.Render(renderCtx); err != nil {
		return err
	}

	// Display stats
	displayFrameStats(r.Stats())

	return writeFrame(r.Frame(), uint32(con.Render.Scale), con.Render.Output)
}

// Load the configuration file (if any) and apply command line overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	con := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if con, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if ctx.IsSet("width") {
		con.Render.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		con.Render.Height = ctx.Int("height")
	}
	if ctx.IsSet("out") {
		con.Render.Output = ctx.String("out")
	}
	if ctx.IsSet("seed") {
		con.Render.Seed = ctx.Int("seed")
	}
	if ctx.IsSet("time") {
		con.Render.Time = ctx.Float64("time")
	}
	if ctx.IsSet("tracers") {
		con.Render.Tracers = ctx.Int("tracers")
	}
	if ctx.IsSet("group-size") {
		con.Render.GroupSize = ctx.Int("group-size")
	}
	if ctx.IsSet("scale") {
		con.Render.Scale = ctx.Int("scale")
	}
	if ctx.Bool("jitter") {
		con.Render.Jitter = true
	}
	if ctx.Bool("no-sky") {
		con.Sky.Enabled = false
	}

	if err := con.Validate(); err != nil {
		return nil, err
	}
	return con, nil
}

// Create the cpu tracers that split each frame. Available cores are shared
// evenly between tracers.
func createTracers(con *config.Config) ([]tracer.Tracer, error) {
	count := con.Render.Tracers
	if count == 0 {
		count = 1
	}
	workers := runtime.GOMAXPROCS(0) / count
	if workers < 1 {
		workers = 1
	}

	tracers := make([]tracer.Tracer, 0, count)
	for idx := 0; idx < count; idx++ {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", idx), cpu.Options{
			GroupSize: uint32(con.Render.GroupSize),
			Workers:   workers,
		})
		if err != nil {
			for _, created := range tracers {
				created.Close()
			}
			return nil, err
		}
		tracers = append(tracers, tr)
	}
	return tracers, nil
}

// Magnify frame by scale and write it to a png file.
func writeFrame(frame *image.RGBA, scale uint32, imgFile string) error {
	start := time.Now()

	bounds := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*int(scale), bounds.Dy()*int(scale)))
	if err := renderer.Present(frame, out, scale); err != nil {
		return err
	}

	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, out); err != nil {
		return fmt.Errorf("error encoding png file: %w", err)
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1e6)
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Primary", "Block height", "% of frame", "Rays", "Hits", "Nodes visited", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%t", stat.IsPrimary),
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%d", stat.Hits),
			fmt.Sprintf("%d", stat.NodesVisited),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

// Print an example configuration file.
func ShowExampleConfig(ctx *cli.Context) error {
	fmt.Fprintln(ctx.App.Writer, config.ExampleConfig)
	return nil
}
