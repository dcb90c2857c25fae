package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/layout/transform"
)

var (
	inspectSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	inspectNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	inspectErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// inspectCommand creates the inspect command: an interactive bin browser
// driving the flip and pick transforms.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts layoutOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Interactively browse and rearrange a layout",
		Long: `Interactively browse and rearrange a layout.

Loads the given tables, computes the layout, and opens a terminal browser:

  up/k, down/j   move between bins
  f              flip the selected bin
  K, J           move the selected bin up or down
  r              reset to the initial layout
  q              quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lopts, err := c.engineOptions(opts)
			if err != nil {
				return err
			}
			store := c.newCache(cmd.Context(), false)
			defer store.Close()
			reg, _, err := c.ingestTracks(cmd.Context(), store, opts)
			if err != nil {
				return err
			}
			l, err := layout.New(reg, lopts)
			if err != nil {
				return err
			}

			model := newInspectModel(l)
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&opts.seqs, "seqs", "", "sequence table (TSV)")
	cmd.Flags().StringArrayVar(&opts.feats, "feats", nil, "feature track ([name=]path), repeatable")
	cmd.Flags().StringArrayVar(&opts.genes, "genes", nil, "gene track, shorthand for --feats genes=path")
	cmd.Flags().StringArrayVar(&opts.links, "links", nil, "link track ([name=]path), repeatable")
	cmd.Flags().IntVar(&opts.gap, "gap", -1, "spacer between sequences of a bin")

	return cmd
}

// inspectModel is the bubbletea model for the layout browser.
type inspectModel struct {
	initial *layout.Layout
	current *layout.Layout
	cursor  int
	errMsg  string
}

func newInspectModel(l *layout.Layout) inspectModel {
	return inspectModel{initial: l, current: l}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	bins := m.current.Bins()
	m.errMsg = ""

	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(bins)-1 {
			m.cursor++
		}
	case "f":
		m.apply(func(l *layout.Layout) (*layout.Layout, error) {
			return transform.Flip(l, bins[m.cursor])
		})
	case "K":
		if m.cursor > 0 {
			bins[m.cursor-1], bins[m.cursor] = bins[m.cursor], bins[m.cursor-1]
			m.apply(func(l *layout.Layout) (*layout.Layout, error) {
				return transform.Pick(l, bins...)
			})
			m.cursor--
		}
	case "J":
		if m.cursor < len(bins)-1 {
			bins[m.cursor], bins[m.cursor+1] = bins[m.cursor+1], bins[m.cursor]
			m.apply(func(l *layout.Layout) (*layout.Layout, error) {
				return transform.Pick(l, bins...)
			})
			m.cursor++
		}
	case "r":
		m.current = m.initial
		m.cursor = 0
	}

	return m, nil
}

// apply swaps in a derived layout, keeping the current one on error.
func (m *inspectModel) apply(fn func(*layout.Layout) (*layout.Layout, error)) {
	next, err := fn(m.current)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.current = next
}

func (m inspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layout Inspector"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ select  f flip  K/J move  r reset  q quit"))
	b.WriteString("\n\n")

	seqsByBin := make(map[string][]layout.SeqRow)
	for _, s := range m.current.Seqs() {
		seqsByBin[s.BinID] = append(seqsByBin[s.BinID], s)
	}

	for i, bin := range m.current.Bins() {
		marker := "  "
		style := inspectNormalStyle
		if i == m.cursor {
			marker = "▸ "
			style = inspectSelectedStyle
		}
		b.WriteString(marker + style.Render(bin))
		b.WriteString("\n")

		for _, s := range seqsByBin[bin] {
			b.WriteString(StyleDim.Render(fmt.Sprintf("    %-20s %s  x %6d..%-6d  window %d..%d",
				s.SeqID, s.Strand, s.XOffset, s.XOffset+(s.End-s.Start), s.Start, s.End)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("width %d", m.current.Width())))
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(inspectErrorStyle.Render(iconError + " " + m.errMsg))
	}
	b.WriteString("\n")

	return b.String()
}
