package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/asset/reader"
	"github.com/achilleasa/sahtrace/asset/writer"
	"github.com/achilleasa/sahtrace/config"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := loadScene(sceneFile, cfg)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := strings.TrimSuffix(sceneFile, ".obj") + ".zip"
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
	}

	return nil
}

// Display scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx.Args().First(), cfg)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef("BVH statistics:\n%s", sc.Accel().Stats())
	if bbox, ok := sc.BoundingBox(); ok {
		logger.Noticef("scene bounds: [%v, %v]", bbox[0], bbox[1])
	}

	return nil
}

// Load the configuration file selected with the config flag or fall back to
// the defaults. BVH option flags override the configuration.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if cfgFile := ctx.String("config"); cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}

	if ctx.IsSet("scale") {
		cfg.SceneScale = float32(ctx.Float64("scale"))
	}
	if ctx.IsSet("bins") {
		cfg.BVH.BinCount = ctx.Int("bins")
	}
	if ctx.IsSet("min-leaf") {
		cfg.BVH.MinLeafPrimitives = ctx.Int("min-leaf")
	}
	if ctx.IsSet("max-depth") {
		cfg.BVH.MaxTreeDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("cost-taabb") {
		cfg.BVH.CostTaabb = float32(ctx.Float64("cost-taabb"))
	}
	if ctx.IsSet("bvh-cache") {
		cfg.BVHCache = ctx.String("bvh-cache")
	}

	return cfg, cfg.Validate()
}

// Read a scene, apply the configured scale and make sure it has a BVH. The
// BVH is taken from the compiled scene, the BVH cache or a fresh build, in
// that order. Fresh builds are stored to the cache if one is configured.
func loadScene(sceneFile string, cfg *config.Config) (*scene.Scene, error) {
	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, err
	}

	if cfg.SceneScale != 1 {
		sc.Mesh.Scale(cfg.SceneScale)
		if sc.Accel() != nil {
			logger.Notice("scene scale changed; rebuilding BVH")
			if err = sc.BuildAccel(cfg.BVH); err != nil {
				return nil, err
			}
		}
	}

	if sc.Accel() != nil {
		return sc, nil
	}

	if cfg.BVHCache != "" {
		err = sc.LoadAccel(cfg.BVHCache)
		switch {
		case err == nil:
			logger.Noticef("loaded BVH from %s", cfg.BVHCache)
			return sc, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Warningf("ignoring BVH cache %s: %v; rebuilding", cfg.BVHCache, err)
		}
	}

	start := time.Now()
	if err = sc.BuildAccel(cfg.BVH); err != nil {
		return nil, err
	}
	logger.Noticef("built BVH for %d triangles in %d ms", sc.Mesh.NumFaces(), time.Since(start).Nanoseconds()/1e6)

	if cfg.BVHCache != "" {
		if err = sc.Accel().Dump(cfg.BVHCache); err != nil {
			return nil, fmt.Errorf("could not write BVH cache: %w", err)
		}
		logger.Noticef("wrote BVH to %s", cfg.BVHCache)
	}

	return sc, nil
}

// Build option flags shared by all commands that load scenes.
var SceneFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "load render settings from a JSON config file",
	},
	cli.Float64Flag{
		Name:  "scale",
		Value: 1.0,
		Usage: "uniform scale applied to the scene geometry",
	},
	cli.StringFlag{
		Name:  "bvh-cache",
		Usage: "load the BVH from this file or store it there after building",
	},
	cli.IntFlag{
		Name:  "bins",
		Value: accel.DefaultOptions().BinCount,
		Usage: "number of SAH bins per axis",
	},
	cli.IntFlag{
		Name:  "min-leaf",
		Value: accel.DefaultOptions().MinLeafPrimitives,
		Usage: "ranges with fewer triangles become leafs",
	},
	cli.IntFlag{
		Name:  "max-depth",
		Value: accel.DefaultOptions().MaxTreeDepth,
		Usage: "max BVH depth",
	},
	cli.Float64Flag{
		Name:  "cost-taabb",
		Value: float64(accel.DefaultOptions().CostTaabb),
		Usage: "relative cost of a bbox test compared to a triangle test",
	},
}
