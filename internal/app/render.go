package app

import (
	"fmt"
	"strings"

	"github.com/gookit/color"

	"github.com/vk/forgeplan/internal/engine"
	"github.com/vk/forgeplan/internal/rule"
)

// renderPlan prints every synthesized rule in declaration order: its
// artifacts, dependencies and the command for each declared profile.
func (a *App) renderPlan(eng *engine.Engine) {
	for _, r := range eng.Rules() {
		fmt.Fprintf(a.outW, "%s %s\n", kindColor(r.Kind).Sprint(kindLabel(r.Kind)), color.Bold.Sprint(r.Name))
		if len(r.Outs) > 0 {
			fmt.Fprintf(a.outW, "  outs: %s\n", strings.Join(r.Outs, " "))
		}
		if len(r.Deps) > 0 {
			fmt.Fprintf(a.outW, "  deps: %s\n", strings.Join(r.Deps, " "))
		}
		if len(r.Requirements) > 0 {
			fmt.Fprintf(a.outW, "  link: %s\n", strings.Join(requirementStrings(r.Requirements), " "))
		}
		for _, p := range profiles(r.Commands) {
			fmt.Fprintf(a.outW, "  %s %s\n", color.Gray.Sprintf("[%s]", p.name), p.command)
		}
		fmt.Fprintln(a.outW)
	}
}

// requirementStrings renders typed link requirements for display.
func requirementStrings(reqs []rule.LinkRequirement) []string {
	out := make([]string, 0, len(reqs))
	for _, req := range reqs {
		switch req.Kind {
		case rule.ReqPkgConfig:
			out = append(out, "pkg-config:"+req.Value)
		default:
			out = append(out, req.Value)
		}
	}
	return out
}

type profile struct {
	name    string
	command string
}

// profiles lists the distinct command variants, collapsing profiles that
// share identical command text.
func profiles(cs rule.CommandSet) []profile {
	out := []profile{{"opt", cs.Opt}}
	if cs.Dbg != cs.Opt {
		out = append([]profile{{"dbg", cs.Dbg}}, out...)
	}
	if cs.HasCover() && cs.Cover != cs.Opt {
		out = append(out, profile{"cover", cs.Cover})
	}
	return out
}

func kindLabel(k rule.Kind) string {
	switch k {
	case rule.KindLibrary:
		return "library"
	case rule.KindBinary:
		return "binary"
	case rule.KindTest:
		return "test"
	case rule.KindFetch:
		return "fetch"
	default:
		return "internal"
	}
}

func kindColor(k rule.Kind) color.Color {
	switch k {
	case rule.KindBinary:
		return color.Green
	case rule.KindTest:
		return color.Yellow
	case rule.KindFetch:
		return color.Magenta
	case rule.KindLibrary:
		return color.Cyan
	default:
		return color.Gray
	}
}
