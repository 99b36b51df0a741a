package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
)

// Allowlist gates line commands. An empty allowlist permits everything; exit
// and quit are always permitted so a restricted bridge can still be stopped.
type Allowlist struct {
	allowed map[string]struct{}
}

func NewAllowlist(commands []string) Allowlist {
	a := Allowlist{}
	for _, cmd := range commands {
		name := normalize(cmd)
		if name == "" {
			continue
		}
		if a.allowed == nil {
			a.allowed = map[string]struct{}{}
		}
		a.allowed[name] = struct{}{}
	}
	return a
}

func (a Allowlist) Check(cmd string) error {
	if len(a.allowed) == 0 {
		return nil
	}
	name := normalize(cmd)
	if name == "exit" || name == "quit" {
		return nil
	}
	if _, ok := a.allowed[name]; ok {
		return nil
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("Command blocked: %s", cmd))
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
