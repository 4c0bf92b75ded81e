package outline

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// document is the YAML form of one node. A node with Clone set is another
// position of the record with that id; it carries nothing else.
type document struct {
	ID       string            `yaml:"id,omitempty"`
	Clone    string            `yaml:"clone,omitempty"`
	Type     string            `yaml:"type,omitempty"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Children []*document       `yaml:"children,omitempty"`
}

// Load reads an outline written as nested YAML nodes. Missing ids are
// generated. Clones may refer to records defined later in the document.
func Load(r io.Reader) (*Tree, error) {
	var root document
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("outline is empty")
		}
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	if root.Clone != "" {
		return nil, errors.New("the root cannot be a clone")
	}

	records := make(map[string]*document)
	var register func(d *document) error
	register = func(d *document) error {
		if d.Clone != "" {
			if d.ID != "" || d.Type != "" || len(d.Fields) > 0 || len(d.Children) > 0 {
				return fmt.Errorf("clone of %q must not carry its own id, type, fields or children", d.Clone)
			}
			return nil
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if _, dup := records[d.ID]; dup {
			return fmt.Errorf("duplicate node id %q", d.ID)
		}
		records[d.ID] = d
		for _, c := range d.Children {
			if err := register(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := register(&root); err != nil {
		return nil, err
	}

	t := &Tree{nodes: make(map[string]*Node, len(records)), rootID: root.ID}
	for id, d := range records {
		n := &Node{ID: id, Type: d.Type, Values: make(map[string]string, len(d.Fields))}
		for k, v := range d.Fields {
			if v != "" {
				n.Values[k] = v
			}
		}
		for _, c := range d.Children {
			childID := c.ID
			if c.Clone != "" {
				if c.Clone == root.ID {
					return nil, errors.New("the root cannot be cloned")
				}
				if _, ok := records[c.Clone]; !ok {
					return nil, fmt.Errorf("clone of unknown node %q", c.Clone)
				}
				childID = c.Clone
			}
			n.Children = append(n.Children, childID)
		}
		t.nodes[id] = n
	}
	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads an outline from a YAML file.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Encode writes the tree in the form Load reads. The first position of a
// cloned record carries its data; later positions refer to it.
func (t *Tree) Encode(w io.Writer) error {
	written := make(map[string]bool)
	var build func(id string) *document
	build = func(id string) *document {
		if written[id] {
			return &document{Clone: id}
		}
		written[id] = true
		n := t.nodes[id]
		d := &document{ID: id, Type: n.Type}
		if len(n.Values) > 0 {
			d.Fields = maps.Clone(n.Values)
		}
		for _, c := range n.Children {
			d.Children = append(d.Children, build(c))
		}
		return d
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(build(t.rootID)); err != nil {
		return fmt.Errorf("encode outline: %w", err)
	}
	return enc.Close()
}

// SaveFile writes the tree to a YAML file.
func (t *Tree) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
