// Package loader reads a pipeline definition: the initial named inputs and the ordered prompts.
//
// Resources are laid out as
//
//	inputs/<inputs manifest>    input names, one per line
//	inputs/<prompts manifest>   prompt names in pipeline order, one per line
//	inputs/<name>.txt           initial input text
//	prompts/<name>/prompt.txt   instruction (optional)
//	prompts/<name>/input.txt    template
//	prompts/<name>/schema.json  output schema (optional)
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/nikogura/jobdocs/pkg/prompt"
	"github.com/nikogura/jobdocs/pkg/store"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultInputsManifest lists the initial input names.
	DefaultInputsManifest = "inputs.txt"
	// DefaultPromptsManifest lists the prompt names in order.
	DefaultPromptsManifest = "prompts.txt"
)

// MissingResourceError reports a named resource that does not exist.
type MissingResourceError struct {
	Path string
}

func (e *MissingResourceError) Error() (msg string) {
	msg = fmt.Sprintf("missing resource: %s", e.Path)
	return msg
}

// ConfigurationError reports a manifest that cannot form a pipeline.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() (msg string) {
	msg = fmt.Sprintf("invalid pipeline configuration: %s", e.Reason)
	return msg
}

// Manifest names the inputs and the prompts of a pipeline, prompts in execution order.
type Manifest struct {
	Inputs  []string `yaml:"inputs"`
	Prompts []string `yaml:"prompts"`
}

// Pipeline is the loader's output: the store seed and the ordered prompts.
type Pipeline struct {
	Inputs  store.Store
	Prompts []prompt.Prompt
}

// Len returns the number of steps.
func (p Pipeline) Len() (n int) {
	n = len(p.Prompts)
	return n
}

// Names returns the prompt names in order.
func (p Pipeline) Names() (names []string) {
	names = make([]string, len(p.Prompts))
	for i, pr := range p.Prompts {
		names[i] = pr.Name
	}
	return names
}

// Source locates a pipeline on disk.
type Source struct {
	Dir             string
	InputsManifest  string
	PromptsManifest string
	// Manifest is an optional YAML manifest relative to Dir; it replaces the line manifests.
	Manifest string
}

// Load reads the pipeline described by the source.
func (s Source) Load() (pipeline Pipeline, err error) {
	if s.Dir == "" {
		err = &ConfigurationError{Reason: "pipeline directory is required"}
		return pipeline, err
	}

	fsys := os.DirFS(s.Dir)

	var manifest Manifest
	if s.Manifest != "" {
		manifest, err = ReadYAMLManifest(fsys, s.Manifest)
	} else {
		manifest, err = ReadManifest(fsys, s.InputsManifest, s.PromptsManifest)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to read pipeline manifest in %s", s.Dir)
		return pipeline, err
	}

	pipeline, err = Load(fsys, manifest)
	if err != nil {
		err = errors.Wrapf(err, "failed to load pipeline from %s", s.Dir)
		return pipeline, err
	}

	return pipeline, err
}

// ReadManifest reads the line-based manifests under inputs/. Empty names mean the defaults.
func ReadManifest(fsys fs.FS, inputsName, promptsName string) (manifest Manifest, err error) {
	if inputsName == "" {
		inputsName = DefaultInputsManifest
	}
	if promptsName == "" {
		promptsName = DefaultPromptsManifest
	}

	manifest.Inputs, err = readNameList(fsys, path.Join("inputs", inputsName))
	if err != nil {
		return manifest, err
	}

	manifest.Prompts, err = readNameList(fsys, path.Join("inputs", promptsName))
	if err != nil {
		return manifest, err
	}

	return manifest, err
}

// ReadYAMLManifest reads a manifest of the form {inputs: [...], prompts: [...]}.
func ReadYAMLManifest(fsys fs.FS, name string) (manifest Manifest, err error) {
	var data []byte
	data, err = readResource(fsys, name)
	if err != nil {
		return manifest, err
	}

	err = yaml.Unmarshal(data, &manifest)
	if err != nil {
		err = &ConfigurationError{Reason: fmt.Sprintf("failed to parse %s: %v", name, err)}
		return manifest, err
	}

	return manifest, err
}

// Load materializes a manifest: every input becomes a text entry of the store, every prompt
// is read with its instruction, template, and schema. Order follows the manifest.
func Load(fsys fs.FS, manifest Manifest) (pipeline Pipeline, err error) {
	err = manifest.Validate()
	if err != nil {
		return pipeline, err
	}

	pipeline.Inputs = store.New()
	for _, name := range manifest.Inputs {
		var data []byte
		data, err = readResource(fsys, path.Join("inputs", name+".txt"))
		if err != nil {
			return pipeline, err
		}
		pipeline.Inputs.Set(name, store.Text(string(data)))
	}

	pipeline.Prompts = make([]prompt.Prompt, 0, len(manifest.Prompts))
	for _, name := range manifest.Prompts {
		var p prompt.Prompt
		p, err = loadPrompt(fsys, name)
		if err != nil {
			return pipeline, err
		}
		pipeline.Prompts = append(pipeline.Prompts, p)
	}

	return pipeline, err
}

// Validate checks that names are present, well-formed, and unique.
func (m Manifest) Validate() (err error) {
	seen := make(map[string]string)

	check := func(kind, name string) (checkErr error) {
		if name == "" {
			checkErr = &ConfigurationError{Reason: fmt.Sprintf("empty %s name", kind)}
			return checkErr
		}
		if strings.ContainsAny(name, "/\\. \t") {
			checkErr = &ConfigurationError{Reason: fmt.Sprintf("%s name %q may only contain letters, digits, '-' and '_'", kind, name)}
			return checkErr
		}
		if prior, dup := seen[name]; dup {
			checkErr = &ConfigurationError{Reason: fmt.Sprintf("duplicate name %q (already used by an %s)", name, prior)}
			return checkErr
		}
		seen[name] = kind
		return checkErr
	}

	for _, name := range m.Inputs {
		err = check("input", name)
		if err != nil {
			return err
		}
	}

	for _, name := range m.Prompts {
		err = check("prompt", name)
		if err != nil {
			return err
		}
	}

	return err
}

func loadPrompt(fsys fs.FS, name string) (p prompt.Prompt, err error) {
	dir := path.Join("prompts", name)
	p.Name = name

	var data []byte
	data, err = readResource(fsys, path.Join(dir, "input.txt"))
	if err != nil {
		return p, err
	}
	p.Template = string(data)

	var found bool
	data, found, err = readOptional(fsys, path.Join(dir, "prompt.txt"))
	if err != nil {
		return p, err
	}
	if found {
		p.Instruction = strings.TrimSpace(string(data))
	}

	data, found, err = readOptional(fsys, path.Join(dir, "schema.json"))
	if err != nil {
		return p, err
	}
	if found {
		p.Schema, err = prompt.ParseSchema(name, data)
		if err != nil {
			return p, err
		}
	}

	return p, err
}

func readNameList(fsys fs.FS, name string) (names []string, err error) {
	var data []byte
	data, err = readResource(fsys, name)
	if err != nil {
		return names, err
	}

	names = make([]string, 0)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}

	return names, err
}

func readResource(fsys fs.FS, name string) (data []byte, err error) {
	data, err = fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &MissingResourceError{Path: name}
			return data, err
		}
		err = errors.Wrapf(err, "failed to read %s", name)
		return data, err
	}
	return data, err
}

func readOptional(fsys fs.FS, name string) (data []byte, found bool, err error) {
	data, err = fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
			return data, found, err
		}
		err = errors.Wrapf(err, "failed to read %s", name)
		return data, found, err
	}
	found = true
	return data, found, err
}
