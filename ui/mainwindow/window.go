// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"autotrace/internal/app"
	"autotrace/internal/features"
	"autotrace/internal/project"
	"autotrace/internal/version"
	"autotrace/ui/canvas"
	"autotrace/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const watchDebounce = 500 * time.Millisecond

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.TraceCanvas
	statusBar *widget.Label

	layerSelect *widget.Select
	editCheck   *widget.Check
	traceButton *widget.Button
	watcher     *app.LayerWatcher

	// Menu items that need state tracking
	traceItem *fyne.MenuItem
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("AutoTrace")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.SetCloseIntercept(mw.onClose)

	return mw
}

// Confirm asks whether a trace with validity problems should be kept. It
// implements features.Decider.
func (mw *MainWindow) Confirm(problems []features.Problem, done func(keep bool)) {
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		lines = append(lines, "- "+p.String())
	}
	msg := "The traced geometry is not valid:\n" + strings.Join(lines, "\n") + "\n\nKeep it anyway?"
	dialog.ShowConfirm("Invalid Geometry", msg, done, mw.Window)
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewTraceCanvas(mw.state, canvas.Bindings{
		Trace:   mw.prefs.TraceModifier(),
		Reverse: mw.prefs.ReverseModifier(),
	})
	mw.canvas.OnZoomChange(func(upp float64) {
		mw.prefs.SetFloat(prefs.KeyZoom, upp)
		mw.updateStatus(fmt.Sprintf("%.4g map units per pixel", upp))
	})

	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	content := container.NewBorder(
		toolbar,                           // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1024, 768))
}

// createToolbar creates the layer selector, tool and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.layerSelect = widget.NewSelect(nil, func(id string) {
		if id == mw.state.ActiveLayer() {
			return
		}
		if err := mw.state.SetActiveLayer(id); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
	mw.layerSelect.PlaceHolder = "(no layer)"

	mw.editCheck = widget.NewCheck("Editing", func(on bool) {
		if id := mw.state.ActiveLayer(); id != "" {
			if err := mw.state.SetLayerEditable(id, on); err != nil {
				dialog.ShowError(err, mw.Window)
			}
		}
	})

	mw.traceButton = widget.NewButton("Trace", mw.onToggleTrace)
	mw.traceButton.Disable()

	zoomOutBtn := widget.NewButton("-", func() {
		mw.canvas.ZoomCenter(1 / 1.25)
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.canvas.ZoomCenter(1.25)
	})

	return container.NewHBox(
		widget.NewLabel("Layer:"),
		mw.layerSelect,
		mw.editCheck,
		mw.traceButton,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.canvas.ZoomCenter(1.25) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.canvas.ZoomCenter(1 / 1.25) }),
	)

	mw.traceItem = fyne.NewMenuItem("Trace Tool", mw.onToggleTrace)
	mw.traceItem.Disabled = true
	toolsMenu := fyne.NewMenu("Tools", mw.traceItem)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, toolsMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("AutoTrace - " + filepath.Base(path))
			mw.updateStatus("Project loaded: " + path)
			mw.prefs.SetString(prefs.KeyLastProject, path)
		}
		mw.syncLayers()
		mw.restartWatcher()
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventProjectSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("AutoTrace - " + filepath.Base(path))
			mw.updateStatus("Saved " + path)
		}
	})

	mw.state.On(app.EventFeaturesChanged, func(data interface{}) {
		title := mw.Title()
		if !strings.HasSuffix(title, " *") && mw.state.Modified() {
			mw.SetTitle(title + " *")
		}
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventLayerReloaded, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Layer %v changed on disk and was reloaded", data))
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventActiveLayerChanged, func(data interface{}) {
		id, _ := data.(string)
		mw.layerSelect.SetSelected(id)
		mw.syncEditCheck()
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventToolAvailability, func(data interface{}) {
		enabled, _ := data.(bool)
		if enabled {
			mw.traceButton.Enable()
		} else {
			mw.traceButton.Disable()
		}
		mw.traceItem.Disabled = !enabled
		mw.syncTraceState()
		mw.syncEditCheck()
	})

	mw.state.On(app.EventTraceFinished, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Added feature %v to %s", data, mw.state.ActiveLayer()))
	})

	mw.state.On(app.EventWarning, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("%v", data))
	})
}

func (mw *MainWindow) syncLayers() {
	var ids []string
	for _, l := range mw.state.Store.Layers() {
		ids = append(ids, l.ID)
	}
	mw.layerSelect.Options = ids
	mw.layerSelect.Refresh()
	mw.layerSelect.SetSelected(mw.state.ActiveLayer())
	mw.syncEditCheck()
}

func (mw *MainWindow) syncEditCheck() {
	l, err := mw.state.Store.Layer(mw.state.ActiveLayer())
	if err != nil {
		mw.editCheck.Disable()
		return
	}
	mw.editCheck.Enable()
	if mw.editCheck.Checked != l.Editable() {
		mw.editCheck.SetChecked(l.Editable())
	}
}

func (mw *MainWindow) syncTraceState() {
	if mw.state.ToolActive() {
		mw.traceButton.Importance = widget.HighImportance
		mw.traceItem.Checked = true
	} else {
		mw.traceButton.Importance = widget.MediumImportance
		mw.traceItem.Checked = false
	}
	mw.traceButton.Refresh()
}

func (mw *MainWindow) restartWatcher() {
	if mw.watcher != nil {
		mw.watcher.Stop()
	}
	mw.watcher = mw.state.WatchLayers(watchDebounce)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onToggleTrace() {
	if mw.state.ToolActive() {
		mw.state.DeactivateTool()
		mw.updateStatus("Trace tool off")
	} else if err := mw.state.ActivateTool(); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	} else {
		mw.updateStatus("Click to add vertices, hold " + mw.prefs.TraceModifier() +
			" to follow features, right-click to finish")
	}
	mw.syncTraceState()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveProject() {
	if mw.state.ProjectPath == "" {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.state.SaveProject(""); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != project.Extension {
			path += project.Extension
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("project" + project.Extension)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onClose() {
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Prefs: save failed: %v", err)
	}
	if !mw.state.Modified() {
		mw.quit()
		return
	}
	dialog.ShowConfirm("Unsaved Changes", "Save edited layers before quitting?", func(save bool) {
		if save {
			if err := mw.state.SaveProject(""); err != nil {
				dialog.ShowError(err, mw.Window)
				return
			}
		}
		mw.quit()
	}, mw.Window)
}

func (mw *MainWindow) quit() {
	if mw.watcher != nil {
		mw.watcher.Stop()
	}
	mw.Window.Close()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About AutoTrace",
		fmt.Sprintf("AutoTrace v%s\n\n"+
			"Digitize lines and polygons by following existing features.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
