package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Document is the machine-readable description of the process: its startup
// flags and the line commands it accepts on stdin.
type Document struct {
	CLI      string        `json:"cli"`
	Version  string        `json:"version"`
	Flags    []FlagSchema  `json:"flags"`
	Commands []LineCommand `json:"commands"`
}

type LineCommand struct {
	Name          string   `json:"cmd"`
	Aliases       []string `json:"aliases,omitempty"`
	Short         string   `json:"short"`
	Authenticated bool     `json:"authenticated"`
	Fields        []Field  `json:"fields,omitempty"`
}

type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  string `json:"default,omitempty"`
	Usage    string `json:"usage"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

func Build(root *cobra.Command, version string, commands []LineCommand) Document {
	return Document{
		CLI:      strings.TrimSpace(root.Name()),
		Version:  version,
		Flags:    collectFlags(root),
		Commands: commands,
	}
}

// Lookup finds a line command by name or alias.
func Lookup(commands []LineCommand, name string) (LineCommand, error) {
	target := strings.ToLower(strings.TrimSpace(name))
	for _, c := range commands {
		if c.Name == target || contains(c.Aliases, target) {
			return c, nil
		}
	}
	return LineCommand{}, fmt.Errorf("command not found: %s", name)
}

func collectFlags(cmd *cobra.Command) []FlagSchema {
	items := []FlagSchema{}
	visit := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		items = append(items, FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
		})
	}
	cmd.PersistentFlags().VisitAll(visit)
	cmd.LocalNonPersistentFlags().VisitAll(visit)
	return items
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
