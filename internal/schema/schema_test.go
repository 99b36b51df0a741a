package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestBuildSchema(t *testing.T) {
	root := &cobra.Command{Use: "clob-bridge"}
	root.PersistentFlags().Int("retries", -1, "retries per request")
	root.PersistentFlags().String("hidden", "", "internal")
	_ = root.PersistentFlags().MarkHidden("hidden")

	doc := Build(root, "1.2.3", []LineCommand{{Name: "markets", Short: "list markets"}})
	if doc.CLI != "clob-bridge" || doc.Version != "1.2.3" {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if len(doc.Flags) != 1 || doc.Flags[0].Name != "retries" || doc.Flags[0].Default != "-1" {
		t.Fatalf("unexpected flags: %+v", doc.Flags)
	}
	if len(doc.Commands) != 1 {
		t.Fatalf("unexpected commands: %+v", doc.Commands)
	}
}

func TestLookup(t *testing.T) {
	commands := []LineCommand{{Name: "exit", Aliases: []string{"quit"}}, {Name: "order"}}
	c, err := Lookup(commands, " QUIT ")
	if err != nil || c.Name != "exit" {
		t.Fatalf("expected alias match, got %+v err=%v", c, err)
	}
	if _, err := Lookup(commands, "withdraw"); err == nil {
		t.Fatal("expected lookup failure")
	}
}
