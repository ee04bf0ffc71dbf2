package a11y

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Node is a semantic element of a screen: a table, its header cells, a form
// and its inputs. Views build a tree of nodes and the enhancers annotate it
// the way a screen reader expects.
type Node struct {
	Tag      string // table, caption, thead, th, form, input, label, error, button, main, nav, header
	ID       string
	Name     string
	Text     string
	Required bool
	Disabled bool
	Attrs    map[string]string
	Children []*Node
}

func (n *Node) Attr(k string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[k]
}

func (n *Node) HasAttr(k string) bool {
	_, ok := n.Attrs[k]
	return ok
}

func (n *Node) SetAttr(k, v string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[k] = v
}

// Walk visits n and its descendants depth first. fn returning false skips
// the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ── Tables ────────────────────────────────────────────────────────────────────

// EnhanceTable adds a caption (from aria-label, else "Tabla de datos"), a
// column scope on header cells and the table role. Running it again changes
// nothing.
func EnhanceTable(t *Node) {
	if t == nil || t.Tag != "table" {
		return
	}
	hasCaption := false
	for _, c := range t.Children {
		if c.Tag == "caption" {
			hasCaption = true
			break
		}
	}
	if !hasCaption {
		text := t.Attr("aria-label")
		if text == "" {
			text = "Tabla de datos"
		}
		caption := &Node{Tag: "caption", Text: text, Attrs: map[string]string{"class": "sr-only"}}
		t.Children = append([]*Node{caption}, t.Children...)
	}
	for _, c := range t.Children {
		if c.Tag != "thead" {
			continue
		}
		c.Walk(func(n *Node) bool {
			if n.Tag == "th" && !n.HasAttr("scope") {
				n.SetAttr("scope", "col")
			}
			return true
		})
	}
	if !t.HasAttr("role") {
		t.SetAttr("role", "table")
	}
}

// ── Forms ─────────────────────────────────────────────────────────────────────

// EnhanceForm gives every input an id, binds its label, marks required and
// validity state, and turns error messages into assertive alerts.
func EnhanceForm(form *Node) {
	if form == nil || form.Tag != "form" {
		return
	}
	labels := map[string]*Node{}
	form.Walk(func(n *Node) bool {
		if n.Tag == "label" && n.Attr("for") != "" {
			labels[n.Attr("for")] = n
		}
		return true
	})

	var walk func(n, parent *Node)
	walk = func(n, parent *Node) {
		switch n.Tag {
		case "input", "select", "textarea":
			if n.ID == "" {
				suffix := n.Name
				if suffix == "" {
					suffix = uuid.NewString()[:8]
				}
				n.ID = form.ID + "-" + suffix
			}
			if _, bound := labels[n.ID]; !bound && parent != nil && parent.Tag == "label" && parent.Attr("for") == "" {
				parent.SetAttr("for", n.ID)
			}
			if n.Required {
				n.SetAttr("aria-required", "true")
			}
			if !n.HasAttr("aria-invalid") {
				n.SetAttr("aria-invalid", "false")
			}
		case "error":
			if n.ID == "" {
				n.ID = "error-" + uuid.NewString()[:8]
			}
			n.SetAttr("role", "alert")
			n.SetAttr("aria-live", string(Assertive))
		}
		for _, c := range n.Children {
			walk(c, n)
		}
	}
	walk(form, nil)
}

// MarkInvalid flags an input and attaches msg as its alert, or clears both
// when msg is empty.
func MarkInvalid(input *Node, msg string) {
	if msg == "" {
		input.SetAttr("aria-invalid", "false")
		delete(input.Attrs, "aria-describedby")
		return
	}
	input.SetAttr("aria-invalid", "true")
	input.SetAttr("aria-describedby", "error-"+input.ID)
}

// ── Buttons and landmarks ─────────────────────────────────────────────────────

// EnhanceButtons labels icon-only buttons from their icon name
// ("fa-print" → "print") and mirrors the disabled state.
func EnhanceButtons(root *Node) {
	root.Walk(func(n *Node) bool {
		if n.Tag != "button" && n.Attr("role") != "button" {
			return true
		}
		if strings.TrimSpace(n.Text) == "" && n.Attr("aria-label") == "" {
			if icon := n.Attr("icon"); strings.HasPrefix(icon, "fa-") {
				n.SetAttr("aria-label", strings.ReplaceAll(strings.TrimPrefix(icon, "fa-"), "-", " "))
			}
		}
		if n.Disabled {
			n.SetAttr("aria-disabled", "true")
		}
		return true
	})
}

// SetupLandmarks assigns the main, navigation and banner roles.
func SetupLandmarks(root *Node) {
	root.Walk(func(n *Node) bool {
		if n.HasAttr("role") {
			return true
		}
		switch n.Tag {
		case "main":
			n.SetAttr("role", "main")
			n.ID = "main-content"
		case "nav":
			n.SetAttr("role", "navigation")
			n.SetAttr("aria-label", "Navegación principal")
		case "header":
			n.SetAttr("role", "banner")
		}
		return true
	})
}

// Describe renders a node the way a screen reader would read it, one line
// per element that carries text.
func Describe(root *Node) []string {
	var out []string
	root.Walk(func(n *Node) bool {
		switch {
		case n.Tag == "caption":
			out = append(out, "Tabla: "+n.Text)
		case n.Tag == "th":
			out = append(out, "Columna: "+n.Text)
		case n.Attr("role") == "alert" && n.Text != "":
			out = append(out, "Alerta: "+n.Text)
		case n.Tag == "input":
			s := fmt.Sprintf("Campo %s", n.Name)
			if n.Attr("aria-required") == "true" {
				s += ", obligatorio"
			}
			if n.Attr("aria-invalid") == "true" {
				s += ", inválido"
			}
			out = append(out, s)
		case n.Tag == "button":
			label := n.Text
			if label == "" {
				label = n.Attr("aria-label")
			}
			out = append(out, "Botón "+label)
		}
		return true
	})
	return out
}
