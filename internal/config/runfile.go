package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RunFile describes one run of a script over raster files.
//
//	script: ndvi.jfl
//	mode: direct
//	sources:
//	  - name: nir
//	    path: nir.tif
//	destinations:
//	  - name: result
//	    path: out.tif
//	world:
//	  width: 100
//	  height: 100
//	  nx: 50
//	  ny: 50
//	vars:
//	  threshold: 0.5
type RunFile struct {
	// Script is a path to the script, relative to the run file.
	Script string `yaml:"script,omitempty"`
	// Source is inline script text. Exactly one of Script and Source is set.
	Source string `yaml:"source,omitempty"`

	// Mode is "direct" (default) or "indirect".
	Mode string `yaml:"mode,omitempty"`

	Sources      []ImageSpec `yaml:"sources,omitempty"`
	Destinations []ImageSpec `yaml:"destinations"`

	// World overrides the default bounds taken from the images.
	World *WorldSpec `yaml:"world,omitempty"`

	// Vars sets init block variables before the run.
	Vars map[string]float64 `yaml:"vars,omitempty"`

	// Journal is an optional SQLite file receiving job events.
	Journal string `yaml:"journal,omitempty"`

	dir string
}

// ImageSpec binds a script image to a raster file. Destinations without an
// existing file take Width and Height, or the size of the first source.
type ImageSpec struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// WorldSpec sets the processing area. Either the resolutions or the pixel
// counts are given; when both are missing the resolution is 1.
type WorldSpec struct {
	MinX   float64 `yaml:"minx"`
	MinY   float64 `yaml:"miny"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	XRes   float64 `yaml:"xres,omitempty"`
	YRes   float64 `yaml:"yres,omitempty"`
	NX     int     `yaml:"nx,omitempty"`
	NY     int     `yaml:"ny,omitempty"`
}

// LoadRunFile reads and validates a run file.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file %s: %w", path, err)
	}
	return ParseRunFile(data, path)
}

// ParseRunFile parses run file content. The path is used for error
// messages and to resolve relative file names.
func ParseRunFile(data []byte, path string) (*RunFile, error) {
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := rf.validate(path); err != nil {
		return nil, err
	}
	if rf.Mode == "" {
		rf.Mode = "direct"
	}
	rf.dir = filepath.Dir(path)
	return &rf, nil
}

func (rf *RunFile) validate(path string) error {
	if (rf.Script == "") == (rf.Source == "") {
		return fmt.Errorf("%s: exactly one of script and source is required", path)
	}
	switch rf.Mode {
	case "", "direct", "indirect":
	default:
		return fmt.Errorf("%s: mode %q must be direct or indirect", path, rf.Mode)
	}
	if len(rf.Destinations) == 0 {
		return fmt.Errorf("%s: no destinations defined", path)
	}

	seen := make(map[string]bool)
	check := func(kind string, i int, spec ImageSpec) error {
		if spec.Name == "" {
			return fmt.Errorf("%s: %s[%d]: name is required", path, kind, i)
		}
		if spec.Path == "" {
			return fmt.Errorf("%s: %s[%d] (%s): path is required", path, kind, i, spec.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("%s: %s[%d]: image %s is declared twice", path, kind, i, spec.Name)
		}
		seen[spec.Name] = true
		return nil
	}
	for i, spec := range rf.Sources {
		if err := check("sources", i, spec); err != nil {
			return err
		}
	}
	for i, spec := range rf.Destinations {
		if err := check("destinations", i, spec); err != nil {
			return err
		}
		if len(rf.Sources) == 0 && (spec.Width <= 0 || spec.Height <= 0) {
			return fmt.Errorf("%s: destinations[%d] (%s): width and height are required without sources",
				path, i, spec.Name)
		}
	}

	if w := rf.World; w != nil {
		if w.Width <= 0 || w.Height <= 0 {
			return fmt.Errorf("%s: world: width and height must be positive", path)
		}
		if (w.NX > 0 || w.NY > 0) && (w.XRes > 0 || w.YRes > 0) {
			return fmt.Errorf("%s: world: give either xres/yres or nx/ny", path)
		}
	}
	return nil
}

// Resolve makes a file name from the run file relative to its directory.
func (rf *RunFile) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(rf.dir, name)
}

// ScriptText returns the script source, reading Script when needed.
func (rf *RunFile) ScriptText() (string, error) {
	if rf.Source != "" {
		return rf.Source, nil
	}
	data, err := os.ReadFile(rf.Resolve(rf.Script))
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(data), nil
}
