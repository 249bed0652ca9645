package buildpack

import (
	_ "embed"
	"slices"
	"text/template"
	"text/template/parse"
)

//go:embed templates/Dockerfile.tmpl
var dockerfileTemplate string

var defaultTemplate = template.Must(parseTemplate("Dockerfile", dockerfileTemplate))

func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// placeholders returns the top-level fields the template reads from its
// data, sorted. Fields inside range and with bodies belong to another dot
// and are skipped; $.Name always refers to the top level.
func placeholders(t *template.Template) []string {
	set := map[string]struct{}{}
	if t.Tree != nil {
		collectPlaceholders(t.Tree.Root, true, set)
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func collectPlaceholders(node parse.Node, topDot bool, set map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectPlaceholders(child, topDot, set)
		}
	case *parse.ActionNode:
		collectPlaceholders(n.Pipe, topDot, set)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, topDot, topDot, set)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, false, topDot, set)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, false, topDot, set)
	case *parse.TemplateNode:
		collectPlaceholders(n.Pipe, topDot, set)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				collectPlaceholders(arg, topDot, set)
			}
		}
	case *parse.ChainNode:
		collectPlaceholders(n.Node, topDot, set)
	case *parse.FieldNode:
		if topDot && len(n.Ident) > 0 {
			set[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			set[n.Ident[1]] = struct{}{}
		}
	}
}

func collectBranch(b *parse.BranchNode, bodyTopDot, outerTopDot bool, set map[string]struct{}) {
	collectPlaceholders(b.Pipe, outerTopDot, set)
	collectPlaceholders(b.List, bodyTopDot, set)
	collectPlaceholders(b.ElseList, outerTopDot, set)
}
