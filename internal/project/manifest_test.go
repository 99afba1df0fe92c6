package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[package]
name = "demo"

[[unit]]
name = "core"
snapshot = "build/core.mp"
`)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, ok, err := LoadManifest(nested)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if !ok {
		t.Fatal("expected manifest to be found from nested dir")
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("package name = %q", m.Config.Package.Name)
	}
	if got := m.SnapshotPath(m.Config.Units[0]); got != filepath.Join(root, "build", "core.mp") {
		t.Fatalf("snapshot path = %q", got)
	}
}

func TestLoadManifestNotFound(t *testing.T) {
	_, ok, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if ok {
		t.Fatal("found a manifest in an empty temp dir")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing package",
			content: "[[unit]]\nname = \"core\"\nsnapshot = \"core.mp\"\n",
			wantErr: "missing [package]",
		},
		{
			name:    "missing units",
			content: "[package]\nname = \"demo\"\n",
			wantErr: "missing [[unit]]",
		},
		{
			name: "blank unit name",
			content: `
[package]
name = "demo"

[[unit]]
name = "  "
snapshot = "core.mp"
`,
			wantErr: "missing name",
		},
		{
			name: "duplicate unit",
			content: `
[package]
name = "demo"

[[unit]]
name = "core"
snapshot = "a.mp"

[[unit]]
name = "core"
snapshot = "b.mp"
`,
			wantErr: "duplicate unit name",
		},
		{
			name: "negative jobs",
			content: `
[package]
name = "demo"

[[unit]]
name = "core"
snapshot = "a.mp"

[check]
jobs = -1
`,
			wantErr: "[check].jobs",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestDigestCombineOrderMatters(t *testing.T) {
	a := HashBytes([]byte("alpha"))
	b := HashBytes([]byte("beta"))
	if Combine(a, b) == Combine(b, a) {
		t.Fatal("Combine must be order sensitive")
	}
	if Combine(a) == a {
		t.Fatal("Combine must rehash even without extras")
	}
	if a.IsZero() {
		t.Fatal("digest of content reported as zero")
	}
	if len(a.Hex()) != 64 {
		t.Fatalf("hex digest length = %d", len(a.Hex()))
	}
}
