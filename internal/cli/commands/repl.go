package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/formula"
	"github.com/leapstack-labs/leapnote/pkg/outline"
)

const replHistoryFile = ".leapnote_history"

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var nodeID string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate formulas interactively against a node",
		Long: `Start an interactive session that evaluates each line as a formula at the
current node. Dot-commands switch nodes, list field values and try out new
Math field equations without saving them.`,
		Example: `  leapnote repl
  leapnote repl --node t1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, nodeID)
		},
	}
	cmd.Flags().StringVarP(&nodeID, "node", "n", "", "Node id to start at (default: root)")
	return cmd
}

func runREPL(cmd *cobra.Command, nodeID string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}
	node, err := findPosition(tree, nodeID)
	if err != nil {
		return err
	}

	s := &replSession{
		eng:    cmdCtx.Engine,
		tree:   tree,
		node:   node,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	historyFile := ""
	if cmdCtx.Cfg.ProjectRoot != "" {
		historyFile = filepath.Join(cmdCtx.Cfg.ProjectRoot, replHistoryFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    newFormulaCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(s.out, "leapnote formula REPL (schema: %s)\n", cmdCtx.Cfg.Schema)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if s.handle(line) {
			break
		}
		rl.SetPrompt(s.prompt())
	}
	return nil
}

// replSession is the state of one REPL: the engine, which .install may
// replace, and the node expressions are evaluated at.
type replSession struct {
	eng    *engine.Engine
	tree   *outline.Tree
	node   *outline.Position
	out    io.Writer
	errOut io.Writer
}

func (s *replSession) prompt() string {
	return fmt.Sprintf("%s:%s> ", s.node.DataType(), s.node.ID())
}

// handle processes one input line and reports whether the session ends.
func (s *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	v, err := s.eng.EvaluateExpression(s.node, line)
	if err != nil {
		s.fail(err)
		return false
	}
	_, _ = fmt.Fprintf(s.out, "%s  (%s)\n", v.String(), v.Type())
	return false
}

func (s *replSession) dotCommand(line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".node":
		if rest == "" {
			_, _ = fmt.Fprintln(s.out, s.node.String())
			return false
		}
		node, err := findPosition(s.tree, rest)
		if err != nil {
			s.fail(err)
			return false
		}
		s.node = node

	case ".fields":
		s.printFields()

	case ".install":
		field, equation, ok := strings.Cut(rest, " ")
		if !ok {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .install <field> <equation>")
			return false
		}
		next, err := s.eng.InstallFormula(s.node.DataType(), field, strings.TrimSpace(equation))
		if err != nil {
			s.fail(err)
			return false
		}
		s.eng = next
		_, _ = fmt.Fprintf(s.out, "installed %s.%s\n", s.node.DataType(), field)

	case ".check":
		if err := s.eng.CheckForCycles(); err != nil {
			s.fail(err)
			return false
		}
		_, _ = fmt.Fprintln(s.out, "no circular references")

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (s *replSession) printFields() {
	dt, ok := s.eng.Registry().Type(s.node.DataType())
	if !ok {
		_, _ = fmt.Fprintf(s.errOut, "unknown data type %q\n", s.node.DataType())
		return
	}
	for _, f := range dt.Fields() {
		v, _ := s.node.FieldValue(f.Name)
		shown := f.ToDisplay(v)
		if f.Equation != "" {
			if got, err := s.eng.EvaluateFormula(s.node, f.Name); err == nil {
				shown = f.ToDisplay(got)
			} else {
				shown = "<" + err.Error() + ">"
			}
		}
		_, _ = fmt.Fprintf(s.out, "  %-16s %s\n", f.Name, shown)
	}
}

func (s *replSession) fail(err error) {
	if kind, ok := formula.KindOf(err); ok {
		_, _ = fmt.Fprintf(s.errOut, "%s: %v\n", kind, err)
		return
	}
	_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                      Show this help message
  .node [id]                 Show or change the current node
  .fields                    List the current node's field values
  .install <field> <eq>      Try a new equation for a Math field (not saved)
  .check                     Check formulas for circular references
  .clear                     Clear the screen
  .quit / .exit              Exit the REPL

Tips:
  - Each line is evaluated as a formula at the current node
  - References: self.F, parent.F, root.F, child.F (in aggregates), ancestor2.F
  - Tab completion works for function names
`
	_, _ = fmt.Fprintln(w, help)
}

// newFormulaCompleter creates a readline completer for function names.
func newFormulaCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range formula.Functions() {
		items = append(items, readline.PcItem(name+"("))
	}
	for _, prefix := range []string{"self.", "parent.", "root.", "child."} {
		items = append(items, readline.PcItem(prefix))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".node"),
		readline.PcItem(".fields"),
		readline.PcItem(".install"),
		readline.PcItem(".check"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
