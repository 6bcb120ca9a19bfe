// Package router implements the hierarchical command router. A Router node
// holds exact and prefix trigger bindings plus child nodes; a dispatch sweeps
// the whole subtree so several scopes can answer the same input.
package router

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/types"
)

// Handler runs for an exact trigger match.
type Handler func(p types.PlayerID)

// ArgHandler runs for a prefix trigger match and receives the text after the prefix.
type ArgHandler func(p types.PlayerID, args string)

// Dispatcher is anything that can consume a chat command.
type Dispatcher interface {
	TryDispatch(p types.PlayerID, text string) bool
}

type prefixBinding struct {
	prefix  string
	handler ArgHandler
}

// Router is one node of the trigger tree. Parents hold children; a detached
// node produces no further effects, even mid-sweep.
type Router struct {
	name     string
	exact    map[string]Handler
	prefixes []prefixBinding
	children []*Router
	parent   *Router
	logger   *zap.Logger
}

// New creates an empty router node. The name appears in fault logs.
func New(name string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		name:   name,
		exact:  map[string]Handler{},
		logger: logger,
	}
}

// Name returns the node name.
func (r *Router) Name() string {
	return r.name
}

// Handle binds an exact trigger. Triggers are matched case-insensitively.
func (r *Router) Handle(trigger string, h Handler) *Router {
	r.exact[strings.ToLower(trigger)] = h
	return r
}

// HandlePrefix binds a prefix trigger. Later bindings for the same prefix
// replace earlier ones.
func (r *Router) HandlePrefix(prefix string, h ArgHandler) *Router {
	prefix = strings.ToLower(prefix)
	for i := range r.prefixes {
		if r.prefixes[i].prefix == prefix {
			r.prefixes[i].handler = h
			return r
		}
	}
	r.prefixes = append(r.prefixes, prefixBinding{prefix: prefix, handler: h})
	return r
}

// AddChild attaches child under r, detaching it from any previous parent.
func (r *Router) AddChild(child *Router) {
	if child == nil || child == r {
		return
	}
	if child.parent == r {
		return
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = r
	r.children = append(r.children, child)
}

// RemoveChild detaches child. Removing a non-child is a no-op.
func (r *Router) RemoveChild(child *Router) {
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i:i], r.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// ClearChildren detaches every child node.
func (r *Router) ClearChildren() {
	for _, c := range r.children {
		c.parent = nil
	}
	r.children = nil
}

// Children returns a copy of the attached children.
func (r *Router) Children() []*Router {
	return append([]*Router(nil), r.children...)
}

// Has reports whether the leading token of text is bound anywhere in the subtree.
func (r *Router) Has(text string) bool {
	cmd, _ := splitCommand(text)
	if cmd == "" {
		return false
	}
	if _, ok := r.exact[cmd]; ok {
		return true
	}
	for _, pb := range r.prefixes {
		if strings.HasPrefix(cmd, pb.prefix) {
			return true
		}
	}
	for _, c := range r.children {
		if c.Has(text) {
			return true
		}
	}
	return false
}

// TryDispatch runs every matching handler in r and its descendants and
// reports whether any ran. Handler panics are recovered and logged; the
// sweep continues with the remaining handlers.
func (r *Router) TryDispatch(p types.PlayerID, text string) bool {
	cmd, rest := splitCommand(text)
	if cmd == "" {
		return false
	}
	return r.dispatch(r, p, cmd, rest)
}

func (r *Router) dispatch(root *Router, p types.PlayerID, cmd, rest string) bool {
	ran := false

	if h, ok := r.exact[cmd]; ok {
		ran = r.invoke(cmd, p, func() { h(p) }) || ran
	}

	for _, pb := range append([]prefixBinding(nil), r.prefixes...) {
		if !r.rootedAt(root) {
			return ran
		}
		if !strings.HasPrefix(cmd, pb.prefix) {
			continue
		}
		args := strings.TrimSpace(strings.TrimSpace(cmd[len(pb.prefix):]) + " " + rest)
		h := pb.handler
		ran = r.invoke(pb.prefix, p, func() { h(p, args) }) || ran
	}

	// Snapshot: handlers may attach or detach nodes while we sweep.
	for _, c := range r.Children() {
		if !c.rootedAt(root) {
			continue
		}
		ran = c.dispatch(root, p, cmd, rest) || ran
	}
	return ran
}

// rootedAt reports whether r is still reachable from root.
func (r *Router) rootedAt(root *Router) bool {
	for n := r; n != nil; n = n.parent {
		if n == root {
			return true
		}
	}
	return false
}

func (r *Router) invoke(trigger string, p types.PlayerID, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("command handler panicked",
				zap.String("router", r.name),
				zap.String("trigger", trigger),
				zap.String("player", string(p)),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			ok = true
		}
	}()
	fn()
	return true
}

// splitCommand lower-cases the leading whitespace-delimited token and returns
// it with the untouched remainder of the message.
func splitCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(text), ""
	}
	return strings.ToLower(text[:i]), strings.TrimSpace(text[i:])
}
