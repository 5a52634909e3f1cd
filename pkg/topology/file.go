package topology

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type fileTopology struct {
	Server   *fileContainer  `yaml:"server"`
	Services []fileContainer `yaml:"services"`
}

type fileContainer struct {
	Image string         `yaml:"image"`
	Tag   string         `yaml:"tag"`
	Port  uint16         `yaml:"port"`
	Env   []fileVariable `yaml:"env"`
	Wait  *fileWait      `yaml:"wait"`
}

type fileVariable struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type fileWait struct {
	Log   string `yaml:"log"`
	Times int    `yaml:"times"` // How often Log must appear
	Delay string `yaml:"delay"`
	HTTP  string `yaml:"http"`
}

// templateData is what a topology file sees while it is rendered.
type templateData struct {
	Env map[string]string
}

// Load reads a topology file. A ".env" file next to it, if present, provides
// defaults for {{ .Env.NAME }}; the process environment takes precedence.
func Load(path string) (Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topology{}, fmt.Errorf("failed to read topology file %s: %w", path, err)
	}

	vars := map[string]string{}
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if fileVars, err := godotenv.Read(dotenv); err == nil {
		vars = fileVars
	} else if !errors.Is(err, os.ErrNotExist) {
		return Topology{}, fmt.Errorf("failed to read %s: %w", dotenv, err)
	}
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			vars[name] = value
		}
	}

	topo, err := Parse(data, vars)
	if err != nil {
		return Topology{}, fmt.Errorf("%s: %w", path, err)
	}
	return topo, nil
}

// Parse renders data as a template with the given variables and decodes the
// resulting YAML into a validated Topology.
func Parse(data []byte, vars map[string]string) (Topology, error) {
	tmpl, err := template.New("topology").
		Option("missingkey=zero").
		Funcs(sprig.TxtFuncMap()).
		Parse(string(data))
	if err != nil {
		return Topology{}, fmt.Errorf("failed to parse topology template: %w", err)
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, templateData{Env: vars}); err != nil {
		return Topology{}, fmt.Errorf("failed to render topology template: %w", err)
	}

	var raw fileTopology
	dec := yaml.NewDecoder(&rendered)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Topology{}, fmt.Errorf("failed to decode topology: %w", err)
	}

	return raw.build()
}

func (f fileTopology) build() (Topology, error) {
	b := New()
	if f.Server != nil {
		wait, err := f.Server.Wait.condition()
		if err != nil {
			return Topology{}, fmt.Errorf("server: %w", err)
		}
		sb := NewServer().Image(f.Server.Image).Tag(f.Server.Tag).WaitFor(wait)
		if f.Server.Port != 0 {
			sb.Port(f.Server.Port)
		}
		for _, v := range f.Server.Env {
			sb.Env(v.Name, v.Value)
		}
		server, err := sb.Build()
		if err != nil {
			return Topology{}, err
		}
		b.Server(server)
	}

	for i, s := range f.Services {
		wait, err := s.Wait.condition()
		if err != nil {
			return Topology{}, fmt.Errorf("service %d (%s): %w", i, s.Image, err)
		}
		sb := NewService().Image(s.Image).Tag(s.Tag).WaitFor(wait)
		if s.Port != 0 {
			sb.Port(s.Port)
		}
		for _, v := range s.Env {
			sb.Env(v.Name, v.Value)
		}
		service, err := sb.Build()
		if err != nil {
			return Topology{}, fmt.Errorf("service %d: %w", i, err)
		}
		b.Service(service)
	}

	return b.Build()
}

func (w *fileWait) condition() (WaitCondition, error) {
	if w == nil {
		return nil, nil
	}

	set := 0
	var cond WaitCondition
	if w.Log != "" {
		set++
		cond = LogLineTimes(w.Log, w.Times)
	}
	if w.Times != 0 && w.Log == "" {
		return nil, &ValidationError{Entity: "wait", Field: "times", Reason: "needs a log line"}
	}
	if w.Times < 0 {
		return nil, &ValidationError{Entity: "wait", Field: "times", Reason: "must not be negative"}
	}
	if w.Delay != "" {
		set++
		d, err := time.ParseDuration(w.Delay)
		if err != nil {
			return nil, &ValidationError{Entity: "wait", Field: "delay", Reason: fmt.Sprintf("is not a duration: %q", w.Delay)}
		}
		cond = Delay(d)
	}
	if w.HTTP != "" {
		set++
		cond = HTTPGet(w.HTTP)
	}
	if set > 1 {
		return nil, &ValidationError{Entity: "wait", Field: "condition", Reason: "must set only one of log, delay or http"}
	}
	return cond, nil
}
