package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/rules"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// ValidateResult is the JSON output of the validate command.
type ValidateResult struct {
	Type      string `json:"type"`
	Field     string `json:"field"`
	Input     string `json:"input"`
	Valid     bool   `json:"valid"`
	Canonical string `json:"canonical,omitempty"`
	Display   string `json:"display,omitempty"`
	Category  string `json:"category,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	depth := -1
	cmd := &cobra.Command{
		Use:   "validate <type> <field> <value>",
		Short: "Check a value against a field format",
		Long: `Check raw input against a field of a data type and print the canonical
value it would be stored as. A value that does not fit the field's format is
reported with the reason it was rejected.`,
		Example: `  # Canonicalize a number
  leapnote validate Task Amount "1,250.50"

  # Dates accept the display format
  leapnote validate Task Due "March 5, 2024" -o json

  # Level-style numbering needs the node's depth
  leapnote validate Task Outline "C." --depth 1`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], args[1], args[2], depth)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", -1, "Outline depth of the node (0 for top level); picks the level of level-style numbering")
	return cmd
}

func runValidate(cmd *cobra.Command, typeName, field, raw string, depth int) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	res := ValidateResult{Type: typeName, Field: field, Input: raw}
	canonical, err := cmdCtx.Engine.ValidateFieldAt(typeName, field, raw, depth)
	var ve *fieldformat.ValidationError
	switch {
	case errors.As(err, &ve):
		res.Category = string(ve.Category)
		res.Error = err.Error()
	case err != nil:
		return err
	default:
		res.Valid = true
		res.Canonical = canonical
		res.Display, _ = cmdCtx.Engine.FormatFieldForDisplay(typeName, field, canonical)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(res); err != nil {
			return err
		}
	default:
		if res.Valid {
			r.KeyValue("Canonical", res.Canonical)
			r.KeyValue("Display", res.Display)
		}
	}
	if !res.Valid {
		return err
	}
	return nil
}

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	var edit bool
	cmd := &cobra.Command{
		Use:   "format <type> <field> <value>",
		Short: "Render a stored value for display",
		Long: `Render a canonical stored value the way the field displays it, applying
the format spec, prefix and suffix. With --edit the editable form is printed
instead.`,
		Example: `  leapnote format Task Due 2024-03-05
  leapnote format Task Due 2024-03-05 --edit`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			f, err := cmdCtx.Engine.Field(args[0], args[1])
			if err != nil {
				return err
			}
			s := f.ToDisplay(args[2])
			if edit {
				s = f.ToEdit(args[2])
			}
			if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
				return cmdCtx.Renderer.JSON(map[string]string{"value": args[2], "formatted": s})
			}
			cmdCtx.Renderer.Println(s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&edit, "edit", false, "Print the edit string instead of the display string")
	return cmd
}

// FieldInfo describes one field in the fields command output.
type FieldInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Format     string   `json:"format,omitempty"`
	Prefix     string   `json:"prefix,omitempty"`
	Suffix     string   `json:"suffix,omitempty"`
	Default    string   `json:"default,omitempty"`
	Equation   string   `json:"equation,omitempty"`
	ResultType string   `json:"result_type,omitempty"`
	SortKey    int      `json:"sort_key,omitempty"`
	Choices    []string `json:"choices,omitempty"`
}

// TypeInfo is the JSON output of the fields command.
type TypeInfo struct {
	Name      string      `json:"name"`
	Generic   string      `json:"generic,omitempty"`
	ChildType string      `json:"child_type,omitempty"`
	Fields    []FieldInfo `json:"fields"`
	Rules     []string    `json:"rules,omitempty"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields [type]",
		Short: "List the fields of a data type",
		Long: `List the fields of a data type in display order, including the fields it
inherits from its generic type. Without a type, the data types are listed.`,
		Example: `  leapnote fields
  leapnote fields Task -o json`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return cmdCtx.Engine.Registry().Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return listTypes(cmdCtx)
			}
			dt, ok := cmdCtx.Engine.Registry().Type(args[0])
			if !ok {
				return fmt.Errorf("unknown data type %q", args[0])
			}
			return showFields(cmdCtx.Renderer, buildTypeInfo(dt))
		},
	}
}

func buildTypeInfo(dt *schema.DataType) TypeInfo {
	info := TypeInfo{Name: dt.Name(), Generic: dt.Generic(), ChildType: dt.ChildType()}
	for _, f := range dt.Fields() {
		fi := FieldInfo{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Format:   f.Format,
			Prefix:   f.Prefix,
			Suffix:   f.Suffix,
			Default:  f.DefaultValue,
			Equation: f.Equation,
			SortKey:  f.SortKey,
			Choices:  f.Choices(),
		}
		if f.Kind == fieldformat.Math {
			fi.ResultType = f.ResultType.String()
		}
		info.Fields = append(info.Fields, fi)
	}
	for _, rule := range dt.Rules() {
		cond := rules.Condition{Combine: rule.Combine, Clauses: rule.Clauses}
		when := cond.String()
		if when == "" {
			when = "always"
		}
		info.Rules = append(info.Rules, when+" => "+rule.Target)
	}
	return info
}

func listTypes(cmdCtx *CommandContext) error {
	r := cmdCtx.Renderer
	var infos []TypeInfo
	for _, dt := range cmdCtx.Engine.Registry().Types() {
		infos = append(infos, buildTypeInfo(dt))
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, info.Generic, info.ChildType,
			strconv.Itoa(len(info.Fields)), strconv.Itoa(len(info.Rules))})
	}
	r.Table([]string{"Type", "Generic", "Child Type", "Fields", "Rules"}, rows)
	return nil
}

func showFields(r *output.Renderer, info TypeInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(2, info.Name)
	if info.Generic != "" {
		r.KeyValue("Generic", info.Generic)
	}
	if info.ChildType != "" {
		r.KeyValue("Child type", info.ChildType)
	}

	rows := make([][]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		spec := f.Format
		if f.Equation != "" {
			spec = f.Equation
		}
		rows = append(rows, []string{f.Name, f.Kind, spec, f.Default})
	}
	r.Table([]string{"Field", "Kind", "Format", "Default"}, rows)

	for _, rule := range info.Rules {
		r.KeyValue("Rule", rule)
	}
	return nil
}
