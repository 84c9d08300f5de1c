package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/gguf"
	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/ollama"
	"github.com/23skdu/longbow-spyglass/internal/session"
)

// LayoutOptions holds flags for the layout command.
type LayoutOptions struct {
	Session  string
	GGUF     string
	Model    string
	Category string
	Layer    int
	Limit    int
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	o := &LayoutOptions{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect a model's memory layout",
		Long: `List the tensor regions of a model layout: offsets, sizes, categories and
layer attribution. The layout comes from a session's memory-map.json, is
derived directly from a GGUF file header, or is resolved from a local Ollama
model name.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().StringVar(&o.GGUF, "gguf", "", "derive the layout from this GGUF file")
	cmd.Flags().StringVar(&o.Model, "model", "", "derive the layout from a local Ollama model name")
	cmd.Flags().StringVar(&o.Category, "category", "", "only regions of this category (embedding|attention|ffn|norm|other)")
	cmd.Flags().IntVar(&o.Layer, "layer", -1, "only regions of this transformer layer")
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "stop after this many regions; 0 means all")

	return cmd
}

func loadLayout(rootOpts *RootOptions, o *LayoutOptions) (*layout.Map, error) {
	switch {
	case o.GGUF != "" && o.Model != "":
		return nil, fmt.Errorf("--gguf and --model are mutually exclusive")
	case o.GGUF != "":
		return layoutFromGGUF(o.GGUF)
	case o.Model != "":
		path, err := ollama.ResolveModelPath(o.Model)
		if err != nil {
			return nil, err
		}
		return layoutFromGGUF(path)
	default:
		root, err := rootOpts.sessionDir(o.Session)
		if err != nil {
			return nil, err
		}
		d, err := session.Open(root)
		if err != nil {
			return nil, err
		}
		return d.Layout()
	}
}

func layoutFromGGUF(path string) (*layout.Map, error) {
	f, err := gguf.Open(path)
	if err != nil {
		return nil, err
	}
	return gguf.BuildLayout(f)
}

func runLayout(rootOpts *RootOptions, o *LayoutOptions, cmd *cobra.Command) error {
	m, err := loadLayout(rootOpts, o)
	if err != nil {
		return err
	}

	tensors := m.Tensors()
	if o.Category != "" {
		cat := layout.ParseCategory(o.Category)
		if !strings.EqualFold(string(cat), o.Category) {
			return fmt.Errorf("invalid category %q (must be embedding, attention, ffn, norm or other)", o.Category)
		}
		tensors = m.ByCategory(cat)
	}
	if o.Layer >= 0 {
		filtered := tensors[:0:0]
		for _, t := range tensors {
			if t.LayerID != nil && *t.LayerID == o.Layer {
				filtered = append(filtered, t)
			}
		}
		tensors = filtered
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d regions, %s\n\n",
		m.ModelName(), m.Len(), humanize.IBytes(m.TotalSizeBytes()))
	fmt.Fprintf(out, "%-44s %12s %12s %10s  %-10s %s\n",
		"NAME", "OFFSET", "END", "SIZE", "CATEGORY", "LAYER")
	shown := 0
	for _, t := range tensors {
		if o.Limit > 0 && shown >= o.Limit {
			fmt.Fprintf(out, "... %d more\n", len(tensors)-shown)
			break
		}
		layer := "-"
		if t.LayerID != nil {
			layer = fmt.Sprintf("%d", *t.LayerID)
		}
		fmt.Fprintf(out, "%-44s %12d %12d %10s  %-10s %s\n",
			t.Name, t.OffsetStart, t.OffsetEnd,
			humanize.IBytes(t.SizeBytes), t.Category, layer)
		shown++
	}
	return nil
}
