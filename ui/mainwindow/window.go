// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"photo-editor/internal/filter"
	"photo-editor/internal/imaging"
	"photo-editor/internal/layer"
	"photo-editor/internal/logger"
	"photo-editor/internal/project"
	"photo-editor/internal/render/fynerender"
	"photo-editor/internal/version"
	"photo-editor/pkg/geometry"
	"photo-editor/ui/panels"
)

const (
	appTitle       = "Photo Editor"
	projectExt     = ".photoproj"
	prefKeyLastDir = "lastDirectory"
)

// Opener creates projects bound to the window's renderer.
type Opener interface {
	New(name string, canvas geometry.Size) (*project.Project, error)
	Load(path string) (*project.Project, error)
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	provider  *fynerender.Provider
	opener    Opener
	log       *zap.Logger
	ctx       context.Context
	proj      *project.Project
	path      string
	modified  bool
	scene     *fynerender.Scene
	statusBar *widget.Label
}

// New creates a new main window showing proj, loaded from path if non-empty.
func New(fyneApp fyne.App, p *fynerender.Provider, opener Opener, proj *project.Project, path string, log *zap.Logger) *MainWindow {
	mw := &MainWindow{
		Window:    fyneApp.NewWindow(appTitle),
		app:       fyneApp,
		provider:  p,
		opener:    opener,
		log:       log,
		ctx:       logger.NewContext(context.Background(), log.Named("ops")),
		statusBar: widget.NewLabel("Ready"),
	}
	mw.setupMenus()
	mw.setupShortcuts()
	mw.SetProject(proj, path)
	return mw
}

// Project returns the project being edited.
func (mw *MainWindow) Project() *project.Project {
	return mw.proj
}

// SetProject replaces the edited project and rebuilds the layout.
func (mw *MainWindow) SetProject(proj *project.Project, path string) {
	mw.proj = proj
	mw.path = path
	mw.modified = false

	snap := proj.Snapshot()
	root, ok := proj.Root().(*fynerender.Group)
	if !ok {
		mw.log.Fatal("project root is not a fyne node", zap.String("type", fmt.Sprintf("%T", proj.Root())))
	}
	mw.scene = fynerender.NewScene(mw.provider, root, int(snap.Settings.Width), int(snap.Settings.Height))
	mw.scene.OnTap = func(pt geometry.Point2D) {
		if id, ok := proj.LayerAt(pt); ok {
			proj.Select(id)
		} else {
			proj.Deselect()
		}
	}
	side := panels.NewSidePanel(proj, mw.Window)
	mw.setupEventHandlers()

	split := container.NewHSplit(side.Container(), mw.scene)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)
	mw.SetContent(content)
	mw.updateTitle()
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Project", mw.onNewProject),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import Image...", mw.onImportImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItem("Export PNG...", mw.onExport),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete Layer", mw.onDeleteLayer),
	)

	layerMenu := fyne.NewMenu("Layer",
		fyne.NewMenuItem("Add Text...", mw.onAddText),
		fyne.NewMenuItem("Add Rectangle", func() { mw.addShape(layer.ShapeRect) }),
		fyne.NewMenuItem("Add Ellipse", func() { mw.addShape(layer.ShapeEllipse) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Background Color...", mw.onBackground),
		fyne.NewMenuItem("Canvas Size...", mw.onCanvasSize),
	)

	toolsMenu := fyne.NewMenu("Tools",
		fyne.NewMenuItem("Remove Background", mw.onRemoveBackground),
		fyne.NewMenuItem("Extract Text", mw.onExtractText),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, layerMenu, toolsMenu, helpMenu))
}

func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.onUndo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		func(fyne.Shortcut) { mw.onRedo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyDelete},
		func(fyne.Shortcut) { mw.onDeleteLayer() })
}

// setupEventHandlers registers for project events.
func (mw *MainWindow) setupEventHandlers() {
	proj := mw.proj
	proj.On(project.EventChanged, func(data any) {
		if proj != mw.proj {
			return
		}
		snap := data.(project.Snapshot)
		mw.modified = true
		mw.scene.SetCanvasSize(int(snap.Settings.Width), int(snap.Settings.Height))
		if n := len(snap.UndoTitles); n > 0 {
			mw.updateStatus(snap.UndoTitles[n-1])
		}
		mw.updateTitle()
	})
	proj.On(project.EventNotice, func(data any) {
		if n, ok := data.(project.Notice); ok {
			mw.updateStatus(n.Message)
		}
	})
	proj.On(project.EventSaved, func(data any) {
		mw.modified = false
		mw.updateTitle()
		mw.updateStatus("Saved " + data.(string))
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateTitle() {
	title := appTitle + " - New Project"
	if mw.path != "" {
		title = appTitle + " - " + filepath.Base(mw.path)
	}
	if mw.modified {
		title += " *"
	}
	mw.SetTitle(title)
}

func (mw *MainWindow) showError(err error) {
	mw.log.Warn("operation failed", zap.Error(err))
	dialog.ShowError(err, mw.Window)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// target returns the selected layer or reports that nothing is selected.
func (mw *MainWindow) target() (layer.ID, bool) {
	snap := mw.proj.Snapshot()
	if snap.Target == nil {
		mw.updateStatus("No layer selected")
		return layer.ID{}, false
	}
	return *snap.Target, true
}

// Menu action handlers

func (mw *MainWindow) onNewProject() {
	size := mw.proj.Snapshot().Settings
	proj, err := mw.opener.New("Untitled", geometry.NewSize(size.Width, size.Height))
	if err != nil {
		mw.showError(err)
		return
	}
	mw.SetProject(proj, "")
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		proj, err := mw.opener.Load(path)
		if err != nil {
			mw.showError(err)
			return
		}
		mw.SetProject(proj, path)
		mw.updateStatus("Project loaded: " + path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{projectExt}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onImportImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)

		data, err := imaging.Load(path)
		if err != nil {
			mw.showError(err)
			return
		}
		img, err := mw.proj.CreateLayer(data)
		if err != nil {
			mw.showError(err)
			return
		}
		if _, err := mw.proj.AddLayer(img); err != nil {
			mw.showError(err)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imaging.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveProject() {
	if mw.path == "" {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.proj.Save(mw.path); err != nil {
		mw.showError(err)
	}
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != projectExt {
			path += projectExt
		}
		mw.saveLastDir(path)
		mw.path = path
		if err := mw.proj.Save(path); err != nil {
			mw.showError(err)
		}
	}, mw.Window)
	fd.SetFileName("project" + projectExt)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		img, err := mw.proj.Export(filter.Apply)
		if err != nil {
			mw.showError(err)
			return
		}
		if err := png.Encode(writer, img); err != nil {
			mw.showError(err)
			return
		}
		mw.updateStatus("Exported " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("export.png")
	fd.Show()
}

func (mw *MainWindow) onUndo() {
	snap, err := mw.proj.Undo()
	if err != nil {
		mw.showError(err)
		return
	}
	if len(snap.RedoTitles) > 0 {
		mw.updateStatus("Undid " + snap.RedoTitles[len(snap.RedoTitles)-1])
	}
}

func (mw *MainWindow) onRedo() {
	if _, err := mw.proj.Redo(); err != nil {
		mw.showError(err)
	}
}

func (mw *MainWindow) onDeleteLayer() {
	id, ok := mw.target()
	if !ok {
		return
	}
	_, err := mw.proj.RemoveLayer(id)
	if err != nil && !errors.Is(err, project.ErrProtectedLayer) {
		mw.showError(err)
	}
}

func (mw *MainWindow) onAddText() {
	entry := widget.NewMultiLineEntry()
	dialog.ShowForm("Add Text", "Add", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(ok bool) {
			if !ok || entry.Text == "" {
				return
			}
			size := mw.proj.Snapshot().Settings
			txt := layer.NewText(entry.Text, geometry.NewPoint2D(size.Width/4, size.Height/4))
			if _, err := mw.proj.AddLayer(txt); err != nil {
				mw.showError(err)
			}
		}, mw.Window)
}

func (mw *MainWindow) addShape(kind layer.ShapeKind) {
	size := mw.proj.Snapshot().Settings
	shp := layer.NewShape(kind, geometry.NewRect(size.Width/4, size.Height/4, size.Width/2, size.Height/2))
	if _, err := mw.proj.AddLayer(shp); err != nil {
		mw.showError(err)
	}
}

func (mw *MainWindow) onBackground() {
	snap := mw.proj.Snapshot()
	color := widget.NewEntry()
	transparent := widget.NewCheck("", nil)
	for _, r := range snap.Layers {
		if r.Background != nil {
			color.SetText(r.Background.Color)
			transparent.SetChecked(r.Background.Transparent)
		}
	}
	dialog.ShowForm("Background", "Apply", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("Color", color),
			widget.NewFormItem("Transparent", transparent),
		},
		func(ok bool) {
			if !ok {
				return
			}
			if _, err := mw.proj.SetBackground(color.Text, transparent.Checked); err != nil {
				mw.showError(err)
			}
		}, mw.Window)
}

func (mw *MainWindow) onCanvasSize() {
	size := mw.proj.Snapshot().Settings
	width := widget.NewEntry()
	width.SetText(strconv.Itoa(int(size.Width)))
	height := widget.NewEntry()
	height.SetText(strconv.Itoa(int(size.Height)))
	dialog.ShowForm("Canvas Size", "Resize", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("Width", width),
			widget.NewFormItem("Height", height),
		},
		func(ok bool) {
			if !ok {
				return
			}
			w, errW := strconv.ParseFloat(width.Text, 64)
			h, errH := strconv.ParseFloat(height.Text, 64)
			if err := errors.Join(errW, errH); err != nil {
				mw.showError(err)
				return
			}
			if _, err := mw.proj.ChangeCanvasDimensions(w, h); err != nil {
				mw.showError(err)
			}
		}, mw.Window)
}

func (mw *MainWindow) onRemoveBackground() {
	id, ok := mw.target()
	if !ok {
		return
	}
	mw.updateStatus("Removing background...")
	go func() {
		if _, err := mw.proj.RemoveBackground(mw.ctx, id); err != nil {
			mw.showError(err)
		}
	}()
}

func (mw *MainWindow) onExtractText() {
	id, ok := mw.target()
	if !ok {
		return
	}
	mw.updateStatus("Recognizing text...")
	go func() {
		if _, err := mw.proj.ExtractText(mw.ctx, id); err != nil {
			mw.showError(err)
		}
	}()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"A layered photo editor with undoable edits.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
