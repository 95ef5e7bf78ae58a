package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/achilleasa/sahtrace/config"
	"github.com/achilleasa/sahtrace/renderer"
	"github.com/achilleasa/sahtrace/tracer"
	"github.com/achilleasa/sahtrace/tracer/cpu"
	"github.com/urfave/cli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	applyRenderFlags(ctx, cfg)
	if err = cfg.Validate(); err != nil {
		return err
	}

	// Load scene
	sceneFile := cfg.ObjFilename
	if ctx.NArg() == 1 {
		sceneFile = ctx.Args().First()
	}
	if sceneFile == "" {
		return errors.New("missing scene file argument")
	}

	imgFile := ctx.String("out")
	encoder, err := imageEncoder(imgFile)
	if err != nil {
		return err
	}

	sc, err := loadScene(sceneFile, cfg)
	if err != nil {
		return err
	}
	cfg.ApplyCamera(sc)

	shader, err := cfg.NewShader()
	if err != nil {
		return err
	}

	tracers, err := createTracers(ctx.Int("tracers"))
	if err != nil {
		return err
	}

	var scheduler tracer.BlockScheduler
	switch ctx.String("scheduler") {
	case "naive":
		scheduler = tracer.NaiveScheduler()
	case "perfect":
		scheduler = tracer.PerfectScheduler()
	default:
		return fmt.Errorf("unsupported block scheduler %q", ctx.String("scheduler"))
	}

	// Create renderer
	r, err := renderer.NewDefault(sc, tracers, scheduler, shader, cfg.RenderOptions())
	if err != nil {
		for _, tr := range tracers {
			tr.Close()
		}
		return err
	}
	defer r.Close()

	// Stop after the current pass on interrupt
	renderCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger.Noticef("rendering %dx%d frame with %d tracer(s)", cfg.Resolution[0], cfg.Resolution[1], len(tracers))
	frame, err := r.Render(renderCtx)
	if err != nil {
		return err
	}

	// Display stats
	logger.Noticef("frame statistics\n%s", r.Stats())

	// Export image
	start := time.Now()
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	err = encoder(f, frame)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", imgFile, err)
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1e6)

	return nil
}

// Override config values with any render flags set on the command line.
func applyRenderFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("width") {
		cfg.Resolution[0] = uint32(ctx.Int("width"))
	}
	if ctx.IsSet("height") {
		cfg.Resolution[1] = uint32(ctx.Int("height"))
	}
	if ctx.IsSet("spp") {
		cfg.SamplesPerPixel = uint32(ctx.Int("spp"))
	}
	if ctx.IsSet("passes") {
		cfg.NumPasses = uint32(ctx.Int("passes"))
	}
	if ctx.IsSet("exposure") {
		cfg.Exposure = float32(ctx.Float64("exposure"))
	}
	if ctx.IsSet("shader") {
		cfg.Shader = ctx.String("shader")
	}
	if ctx.IsSet("max-path-length") {
		cfg.MaxPathLength = ctx.Int("max-path-length")
	}
	if ctx.IsSet("seed") {
		cfg.Seed = uint32(ctx.Int("seed"))
	}
}

// Create the requested number of cpu tracers or one per logical core if
// count is not positive.
func createTracers(count int) ([]tracer.Tracer, error) {
	if count <= 0 {
		return cpu.NewTracerPool()
	}

	tracers := make([]tracer.Tracer, count)
	for idx := range tracers {
		tracers[idx] = cpu.NewTracer(fmt.Sprintf("cpu-%d", idx))
	}
	return tracers, nil
}

type imageEncoderFn func(io.Writer, image.Image) error

// Select an image encoder based on the file extension.
func imageEncoder(imgFile string) (imageEncoderFn, error) {
	switch strings.ToLower(filepath.Ext(imgFile)) {
	case ".png":
		return png.Encode, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, fmt.Errorf("unsupported image format %q; use png, bmp or tiff", filepath.Ext(imgFile))
}

// Render specific flags.
var RenderFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Value: 512,
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: 512,
		Usage: "frame height",
	},
	cli.IntFlag{
		Name:  "spp",
		Value: 1,
		Usage: "samples per pixel and pass",
	},
	cli.IntFlag{
		Name:  "passes",
		Value: 10,
		Usage: "number of progressive passes",
	},
	cli.Float64Flag{
		Name:  "exposure",
		Value: 1.0,
		Usage: "camera exposure for tone-mapping",
	},
	cli.StringFlag{
		Name:  "shader",
		Value: "path",
		Usage: "shader to use (path or normal)",
	},
	cli.IntFlag{
		Name:  "max-path-length",
		Value: 16,
		Usage: "max number of path segments",
	},
	cli.IntFlag{
		Name:  "seed",
		Usage: "random number generator seed",
	},
	cli.IntFlag{
		Name:  "tracers",
		Usage: "number of cpu tracers; 0 uses one per logical core",
	},
	cli.StringFlag{
		Name:  "scheduler",
		Value: "perfect",
		Usage: "block scheduler (naive or perfect)",
	},
	cli.StringFlag{
		Name:  "out, o",
		Value: "frame.png",
		Usage: "image filename for the rendered frame (png, bmp or tiff)",
	},
}
