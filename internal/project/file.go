package project

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"photo-editor/internal/layer"
	"photo-editor/internal/render"
	"photo-editor/pkg/geometry"
)

// FileVersion is the current project file format.
const FileVersion = 1

// File is the on-disk form of a project (.photoproj). Render nodes are
// never stored; they are rebuilt on load.
type File struct {
	Version  int            `json:"version"`
	Settings Settings       `json:"settings"`
	Layers   []layer.Record `json:"layers"`
	Target   *layer.ID      `json:"target,omitempty"`
}

// ReadFile reads a project file without binding it to a renderer.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Version > FileVersion {
		return nil, fmt.Errorf("%s: unsupported project version %d", path, f.Version)
	}
	return &f, nil
}

// BuildLayers rebuilds the layers in paint order. Records repeating an
// earlier id or a second background are dropped, and a background layer is
// added at the bottom if the file has none.
func (f *File) BuildLayers() ([]layer.Layer, error) {
	records := slices.Clone(f.Layers)
	slices.SortStableFunc(records, func(a, b layer.Record) int { return cmp.Compare(a.ZIndex, b.ZIndex) })

	layers := make([]layer.Layer, 0, len(records)+1)
	backgrounds := 0
	seen := make(map[layer.ID]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		l, err := layer.FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", r.ID, err)
		}
		if l.Kind() == layer.KindBackground {
			backgrounds++
			if backgrounds > 1 {
				continue
			}
		}
		layers = append(layers, l)
	}
	if backgrounds == 0 {
		layers = slices.Insert(layers, 0, layer.Layer(layer.NewBackground()))
	}
	return layers, nil
}

// Load opens a project file and binds its layers to p.
func Load(path string, p render.Provider, opts Options) (*Project, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	layers, err := f.BuildLayers()
	if err != nil {
		return nil, err
	}
	proj, err := New(f.Settings.Name, geometry.NewSize(f.Settings.Width, f.Settings.Height), p, opts)
	if err != nil {
		return nil, err
	}
	if err := proj.doc.Restore(layers); err != nil {
		return nil, err
	}
	proj.settings.Created = f.Settings.Created
	proj.settings.Modified = f.Settings.Modified
	if f.Target != nil {
		proj.doc.Layers = proj.doc.Layers.WithTarget(*f.Target)
	}
	return proj, nil
}

// Save writes the project to path. History is not saved.
func (p *Project) Save(path string) error {
	p.mu.Lock()
	snap := p.snapshot()
	p.mu.Unlock()

	f := File{
		Version:  FileVersion,
		Settings: snap.Settings,
		Layers:   snap.Layers,
		Target:   snap.Target,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	p.Emit(EventSaved, path)
	return nil
}
