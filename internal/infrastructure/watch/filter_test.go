package watch

import (
	"path/filepath"
	"testing"

	"github.com/autostack/autostack/pkg/textutil"
)

func TestFilterAllows(t *testing.T) {
	root := filepath.FromSlash("/work/blog")
	f := Filter{
		Root:   root,
		Ignore: textutil.ParseIgnore("*.log\ncoverage/\n"),
		Skip:   []string{"node_modules", ".autostack"},
		Keep:   []string{".autostack/plan.json"},
	}

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{".", true, true},
		{"src/main.ts", false, true},
		{"src", true, true},
		{"node_modules", true, false},
		{"node_modules/pkg/index.js", false, false},
		{"debug.log", false, false},
		{"coverage", true, false},
		{".autostack", true, true},
		{".autostack/plan.json", false, true},
		{".autostack/events.jsonl", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got := f.Allows(filepath.Join(root, filepath.FromSlash(tt.rel)), tt.isDir)
			if got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestTouches(t *testing.T) {
	batch := []ChangeEvent{{Path: "/p/src/a.ts"}, {Path: "/p/.autostack/plan.json"}}
	if !Touches(batch, "/p/.autostack/./plan.json") {
		t.Error("expected plan change to be found")
	}
	if Touches(batch, "/p/src/b.ts") {
		t.Error("unexpected match")
	}
}
