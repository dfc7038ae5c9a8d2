// Package main provides the entry point for the photo editor.
package main

import (
	"fmt"
	"os"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"photo-editor/internal/config"
	"photo-editor/internal/logger"
	"photo-editor/internal/ocr"
	"photo-editor/internal/project"
	"photo-editor/internal/render/fynerender"
	"photo-editor/internal/version"
	"photo-editor/pkg/geometry"
	"photo-editor/ui/mainwindow"
)

const appID = "io.github.photo-editor"

// editor creates projects with the current configuration.
type editor struct {
	mu         sync.Mutex
	cfg        config.Config
	provider   *fynerender.Provider
	recognizer project.Recognizer
	log        *zap.Logger
}

func (e *editor) options() project.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return project.Options{
		UndoDepth:  e.cfg.Performance.UndoDepth,
		RedoDepth:  e.cfg.Performance.RedoDepth,
		Recognizer: e.recognizer,
		Log:        e.log,
		Background: e.cfg.Canvas.Background,
	}
}

func (e *editor) New(name string, canvas geometry.Size) (*project.Project, error) {
	return project.New(name, canvas, e.provider, e.options())
}

func (e *editor) Load(path string) (*project.Project, error) {
	return project.Load(path, e.provider, e.options())
}

func (e *editor) setConfig(cfg config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func main() {
	cfgPath := config.Path()
	cfg, cfgErr := config.Load(cfgPath)

	log, err := logger.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	log.Info("starting", zap.String("version", version.String()))
	if cfgErr != nil {
		log.Warn("using default config", zap.String("path", cfgPath), zap.Error(cfgErr))
	}

	ed := &editor{cfg: cfg, provider: fynerender.NewProvider(log.Named("render")), log: log}

	engine, err := ocr.NewEngine("eng")
	if err != nil {
		log.Warn("text extraction unavailable", zap.Error(err))
	} else {
		defer engine.Close()
		ed.recognizer = engine
	}

	var proj *project.Project
	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
		proj, err = ed.Load(path)
		if err != nil {
			log.Error("failed to load project", zap.String("path", path), zap.Error(err))
			path = ""
		}
	}
	if proj == nil {
		proj, err = ed.New("Untitled", geometry.NewSize(float64(cfg.Canvas.Width), float64(cfg.Canvas.Height)))
		if err != nil {
			log.Fatal("failed to create project", zap.Error(err))
		}
	}

	a := app.NewWithID(appID)
	a.Settings().SetTheme(mainwindow.NewEditorTheme(cfg.UI))

	win := mainwindow.New(a, ed.provider, ed, proj, path, log)
	win.Resize(fyne.NewSize(1400, 900))

	if w := watchConfig(cfgPath, a, ed, win, log); w != nil {
		defer w.Stop()
	}

	win.ShowAndRun()
}

// watchConfig applies config edits to new projects, the theme and the open
// project's history limits. The caller stops the returned watcher.
func watchConfig(path string, a fyne.App, ed *editor, win *mainwindow.MainWindow, log *zap.Logger) *config.Watcher {
	w, err := config.NewWatcher(path, log.Named("config"))
	if err != nil {
		log.Debug("config not watched", zap.String("path", path), zap.Error(err))
		return nil
	}
	w.OnChange(func(cfg config.Config) {
		ed.setConfig(cfg)
		a.Settings().SetTheme(mainwindow.NewEditorTheme(cfg.UI))
		win.Project().SetHistoryLimits(cfg.Performance.UndoDepth, cfg.Performance.RedoDepth)
		log.Info("config reloaded",
			zap.Int("undoDepth", cfg.Performance.UndoDepth),
			zap.Int("redoDepth", cfg.Performance.RedoDepth))
	})
	w.Start()
	return w
}
