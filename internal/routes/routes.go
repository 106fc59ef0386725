// Package routes is the static table of client paths and the views they show.
package routes

import "strings"

// View identifies a terminal view.
type View string

const (
	Dashboard View = "dashboard"
	Variance  View = "variance"
	Grid      View = "grid"
	Timeline  View = "timeline"
	Device    View = "device"
	Operator  View = "operator"
	Batch     View = "batch"
	AI        View = "ai"
)

// Route maps a path either to a view or to another path.
type Route struct {
	Path     string
	View     View
	Title    string
	Redirect string
}

// maxRedirects bounds Resolve on a misconfigured table.
const maxRedirects = 8

// Table is an ordered route list. Order is the sidebar order.
type Table []Route

// Default returns the client route table.
func Default() Table {
	return Table{
		{Path: "/", Redirect: "/dashboard"},
		{Path: "/dashboard", View: Dashboard, Title: "Dashboard"},
		{Path: "/variance", View: Variance, Title: "Variance"},
		{Path: "/grid", View: Grid, Title: "Grid"},
		{Path: "/timeline", View: Timeline, Title: "Timeline"},
		{Path: "/device", View: Device, Title: "Devices"},
		{Path: "/operator", View: Operator, Title: "Operators"},
		{Path: "/batch", View: Batch, Title: "Batches"},
		{Path: "/ai", View: AI, Title: "Assistant"},
	}
}

func (t Table) lookup(path string) (Route, bool) {
	for _, r := range t {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Resolve returns the route that finally serves path, following redirects.
// Trailing slashes are ignored except on the root path.
func (t Table) Resolve(path string) (Route, bool) {
	path = normalize(path)
	for range maxRedirects {
		r, ok := t.lookup(path)
		if !ok {
			return Route{}, false
		}
		if r.Redirect == "" {
			return r, true
		}
		path = normalize(r.Redirect)
	}
	return Route{}, false
}

// Views returns the routes that render a view, in table order.
func (t Table) Views() []Route {
	out := make([]Route, 0, len(t))
	for _, r := range t {
		if r.Redirect == "" && r.View != "" {
			out = append(out, r)
		}
	}
	return out
}

// PathOf returns the path of view v.
func (t Table) PathOf(v View) (string, bool) {
	for _, r := range t {
		if r.View == v && r.Redirect == "" {
			return r.Path, true
		}
	}
	return "", false
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
