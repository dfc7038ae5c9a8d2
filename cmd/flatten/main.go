// Command flatten renders a saved project to a PNG without opening a window.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"strings"

	"go.uber.org/zap"

	"photo-editor/internal/composite"
	"photo-editor/internal/filter"
	"photo-editor/internal/logger"
	"photo-editor/internal/project"
)

func main() {
	in := flag.String("project", "", "Path to .photoproj file")
	out := flag.String("out", "", "Output PNG path (default: project name with .png)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *in == "" {
		fmt.Println("Usage: flatten -project <file.photoproj> [-out image.png] [-v]")
		os.Exit(1)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, ".photoproj") + ".png"
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(true, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*in, *out, log); err != nil {
		log.Error("flatten failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

func run(in, out string, log *zap.Logger) error {
	f, err := project.ReadFile(in)
	if err != nil {
		return err
	}
	layers, err := f.BuildLayers()
	if err != nil {
		return err
	}
	log.Debug("project read",
		zap.String("name", f.Settings.Name),
		zap.Int("layers", len(layers)),
		zap.Float64("width", f.Settings.Width),
		zap.Float64("height", f.Settings.Height))

	c := composite.NewComposite(int(f.Settings.Width), int(f.Settings.Height), filter.Apply, log)
	img, err := c.Render(layers)
	if err != nil {
		return err
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
