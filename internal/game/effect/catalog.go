package effect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Class is an effect kind: its definition plus the factory producing the
// per-instance hooks. Class identity is pointer identity.
type Class struct {
	Def *Definition
	// NewHooks builds the hooks for one instance. nil means BaseHooks.
	NewHooks func() Hooks
}

// NewClass creates a Class.
//
// Precondition: def must not be nil.
func NewClass(def *Definition, newHooks func() Hooks) *Class {
	if def == nil {
		panic("effect.NewClass: def must not be nil")
	}
	return &Class{Def: def, NewHooks: newHooks}
}

// ID returns the definition ID.
func (c *Class) ID() string { return c.Def.ID }

func (c *Class) newHooks() Hooks {
	if c.NewHooks == nil {
		return BaseHooks{}
	}
	if h := c.NewHooks(); h != nil {
		return h
	}
	return BaseHooks{}
}

// Catalog holds every known effect class keyed by definition ID.
type Catalog struct {
	classes map[string]*Class
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{classes: make(map[string]*Class)}
}

// Register validates c's definition and adds it.
//
// Precondition: c and c.Def must not be nil.
// Postcondition: Returns an error if the definition is invalid or its ID is already registered.
func (c *Catalog) Register(class *Class) error {
	if class == nil || class.Def == nil {
		return ErrNilClass
	}
	if err := class.Def.Validate(); err != nil {
		return err
	}
	if _, dup := c.classes[class.Def.ID]; dup {
		return fmt.Errorf("effect %s: already registered", class.Def.ID)
	}
	c.classes[class.Def.ID] = class
	return nil
}

// Get returns the class for id, or (nil, false) if not found.
func (c *Catalog) Get(id string) (*Class, bool) {
	class, ok := c.classes[id]
	return class, ok
}

// MustGet returns the class for id and panics when it is missing.
func (c *Catalog) MustGet(id string) *Class {
	class, ok := c.classes[id]
	if !ok {
		panic("effect: unknown class " + id)
	}
	return class
}

// All returns every class ordered by ID.
func (c *Catalog) All() []*Class {
	out := make([]*Class, 0, len(c.classes))
	for _, class := range c.classes {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}

// Len returns the number of registered classes.
func (c *Catalog) Len() int { return len(c.classes) }

// LoadDirectory reads every *.yaml, *.yml and *.toml file in dir as one
// Definition and returns a Catalog of default-hook classes.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Catalog, or an error naming the first file that fails.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	cat := NewCatalog()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var def *Definition
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			def, err = decodeYAML(path)
		case ".toml":
			def, err = decodeTOML(path)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := cat.Register(NewClass(def, nil)); err != nil {
			return nil, fmt.Errorf("registering %q: %w", path, err)
		}
	}
	return cat, nil
}

func decodeYAML(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	def := DefaultDefinition()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return &def, nil
}

func decodeTOML(path string) (*Definition, error) {
	def := DefaultDefinition()
	md, err := toml.DecodeFile(path, &def)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing %q: unknown fields %v", path, undecoded)
	}
	return &def, nil
}
