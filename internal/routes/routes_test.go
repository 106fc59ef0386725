package routes

import "testing"

func TestResolve(t *testing.T) {
	table := Default()
	tests := []struct {
		path   string
		want   View
		wantOK bool
	}{
		{"/", Dashboard, true},
		{"", Dashboard, true},
		{"/dashboard", Dashboard, true},
		{"/variance", Variance, true},
		{"/grid/", Grid, true},
		{"timeline", Timeline, true},
		{"/device", Device, true},
		{"/operator", Operator, true},
		{"/batch", Batch, true},
		{"/ai", AI, true},
		{"/settings", "", false},
		{"/dashboard/extra", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, ok := table.Resolve(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if r.View != tt.want {
				t.Fatalf("Resolve(%q) view = %q, want %q", tt.path, r.View, tt.want)
			}
		})
	}
}

func TestResolveRedirectLoop(t *testing.T) {
	table := Table{
		{Path: "/a", Redirect: "/b"},
		{Path: "/b", Redirect: "/a"},
	}
	if _, ok := table.Resolve("/a"); ok {
		t.Fatal("expected redirect loop to fail")
	}
}

func TestViewsSkipsRedirects(t *testing.T) {
	views := Default().Views()
	if len(views) != 8 {
		t.Fatalf("got %d views, want 8", len(views))
	}
	if views[0].View != Dashboard || views[len(views)-1].View != AI {
		t.Fatalf("unexpected order: first=%q last=%q", views[0].View, views[len(views)-1].View)
	}
	for _, r := range views {
		if r.Title == "" {
			t.Errorf("route %s has no title", r.Path)
		}
	}
}

func TestPathOf(t *testing.T) {
	p, ok := Default().PathOf(Batch)
	if !ok || p != "/batch" {
		t.Fatalf("PathOf(Batch) = %q, %v", p, ok)
	}
	if _, ok := Default().PathOf("nope"); ok {
		t.Fatal("expected unknown view to be missing")
	}
}
