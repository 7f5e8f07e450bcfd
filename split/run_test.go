package split

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"twsplit/common"
	"twsplit/config"
	"twsplit/state"
	"twsplit/twee"
)

const sampleStoryPath = "../testdata/story.twee"

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	env.Subfolders = cfg.Split.Subfolders
	env.MoreSplit = cfg.Split.MoreSplit
	env.Collisions = cfg.Split.Collisions
	return ctx, env
}

func copySample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(sampleStoryPath)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	src := filepath.Join(t.TempDir(), "story.twee")
	if err := os.WriteFile(src, data, 0644); err != nil {
		t.Fatal(err)
	}
	return src
}

func listFiles(t *testing.T, root string) map[string]bool {
	t.Helper()
	files := make(map[string]bool)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			files[filepath.ToSlash(rel)] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func assertFiles(t *testing.T, root string, want ...string) {
	t.Helper()
	got := listFiles(t, root)
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing %s", w)
		}
		delete(got, w)
	}
	for extra := range got {
		t.Errorf("unexpected %s", extra)
	}
}

func TestProcess_FullLayout(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := copySample(t)
	dst := filepath.Join(t.TempDir(), "out")

	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	assertFiles(t, dst,
		"StoryData/StoryTitle.twee",
		"StoryData/StoryData.twee",
		"StyleSheet/main.css",
		"StyleSheet/menu.css",
		"StoryScripts/setup.js",
		"StoryScripts/macros_inventory.js",
		"SpecialPassages/StoryInit.twee",
		"SpecialPassages/StoryCaption.twee",
		"Widgets/Helpers.twee",
		"Start.twee",
		"Look around.twee",
	)

	data, err := os.ReadFile(filepath.Join(dst, "Start.twee"))
	if err != nil {
		t.Fatal(err)
	}
	want := ":: Start {\"position\":\"100,100\"}\nYou are in a dusty room. A note reads \":: do not split here\".\n\n[[Look around]]"
	if string(data) != want {
		t.Errorf("Start.twee = %q, want %q", data, want)
	}

	css, err := os.ReadFile(filepath.Join(dst, "StyleSheet", "main.css"))
	if err != nil {
		t.Fatal(err)
	}
	if string(css) != "body {\n\tbackground: #111;\n}" {
		t.Errorf("main.css = %q", css)
	}
}

func TestProcess_NoSubfolders(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Subfolders = false
	src := copySample(t)
	dst := t.TempDir()

	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	// aggregates are not where post-split expects them and stay intact
	assertFiles(t, dst,
		"StoryTitle.twee",
		"StoryData.twee",
		"Story Stylesheet.twee",
		"Story JavaScript.twee",
		"StoryInit.twee",
		"StoryCaption.twee",
		"Helpers.twee",
		"Start.twee",
		"Look around.twee",
	)
}

func TestProcess_NoMoreSplit(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.MoreSplit = false
	src := copySample(t)
	dst := t.TempDir()

	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	files := listFiles(t, dst)
	for _, f := range []string{"StyleSheet/Story Stylesheet.twee", "StoryScripts/Story JavaScript.twee"} {
		if !files[f] {
			t.Errorf("missing aggregate %s", f)
		}
	}
	if files["StyleSheet/main.css"] {
		t.Error("aggregate must not be split")
	}
}

func TestProcess_NoPassages(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "empty.twee")
	if err := os.WriteFile(src, []byte("StoryTitle without marker\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "out")

	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("no output expected, stat error = %v", err)
	}
}

func TestProcess_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"windows-1251 read as utf-8", []byte(":: Start\n\xcf\xf0\xe8\xe2\xe5\xf2\n")},
		{"after utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, ":: Start\n\xcf\xf0\xe8\n"...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			src := filepath.Join(t.TempDir(), "story.twee")
			if err := os.WriteFile(src, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			dst := filepath.Join(t.TempDir(), "out")

			err := process(ctx, src, dst, zap.NewNop())
			if !errors.Is(err, twee.ErrInvalidText) {
				t.Fatalf("process() error = %v, want ErrInvalidText", err)
			}
			if _, err := os.Stat(dst); !os.IsNotExist(err) {
				t.Errorf("no output expected, stat error = %v", err)
			}
		})
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	err := process(ctx, copySample(t), t.TempDir(), zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("process() error = %v, want context.Canceled", err)
	}
}

func TestProcess_Charsets(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Decoding = charmap.Windows1251
	env.Encoding = charmap.KOI8R

	raw, err := charmap.Windows1251.NewEncoder().String(":: Начало\nПривет\n")
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "ru.twee")
	if err := os.WriteFile(src, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()

	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "Начало.twee"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := charmap.KOI8R.NewDecoder().Bytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != ":: Начало\nПривет" {
		t.Errorf("decoded output = %q", got)
	}
}

func TestProcess_BOM(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "bom.twee")
	if err := os.WriteFile(src, append([]byte{0xEF, 0xBB, 0xBF}, ":: Start\nHi\n"...), 0644); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()
	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	assertFiles(t, dst, "Start.twee")
}

func TestProcess_BinaryInput(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "story.twee")
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}
	if err := os.WriteFile(src, png, 0644); err != nil {
		t.Fatal(err)
	}
	if err := process(ctx, src, t.TempDir(), zap.NewNop()); err == nil {
		t.Error("expected error for binary input")
	}
}

func TestProcess_CollisionFail(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Collisions = common.CollisionPolicyFail
	src := filepath.Join(t.TempDir(), "dup.twee")
	if err := os.WriteFile(src, []byte(":: Room [a]\none\n\n:: Room [b]\ntwo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := process(ctx, src, t.TempDir(), zap.NewNop()); err == nil {
		t.Error("expected collision error")
	}
}

func TestDefaultDestination(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{filepath.Join("dir", "story.twee"), filepath.Join("dir", "story")},
		{filepath.Join("dir", "story.tw"), filepath.Join("dir", "story")},
		{filepath.Join("dir", "story.v2.twee"), filepath.Join("dir", "story.v2")},
		{filepath.Join("dir", "story"), filepath.Join("dir", "story_split")},
		{filepath.Join("dir", ".twee"), filepath.Join("dir", ".twee_split")},
	}
	for _, tt := range tests {
		if got := defaultDestination(tt.src); got != tt.want {
			t.Errorf("defaultDestination(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()
	if err := checkSource(filepath.Join(dir, "missing.twee")); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("missing file: error = %v", err)
	}
	if err := checkSource(dir); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("directory: error = %v", err)
	}
	if err := checkSource(sampleStoryPath); err != nil {
		t.Errorf("regular file: error = %v", err)
	}
}

func TestLookupCharset(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF-8", "windows-1251", "ISO-8859-1", "koi8-r"} {
		if enc, err := lookupCharset(name); err != nil || enc == nil {
			t.Errorf("lookupCharset(%q) = (%v, %v)", name, enc, err)
		}
	}
	if _, err := lookupCharset("no-such-charset"); err == nil {
		t.Error("expected error for unknown charset")
	}
}

func newSplitCommand() *cli.Command {
	return &cli.Command{
		Name:   "split",
		Flags:  Flags(),
		Action: Run,
	}
}

func TestRun(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := copySample(t)

	if err := newSplitCommand().Run(ctx, []string{"split", "--ns", "--nm", src}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// destination defaults to source without extension
	files := listFiles(t, strings.TrimSuffix(src, ".twee"))
	if len(files) != 9 || !files["Story Stylesheet.twee"] {
		t.Errorf("unexpected layout: %v", files)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	src := copySample(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"split"}},
		{"bad decoding", []string{"split", "--dec", "no-such-charset", src}},
		{"bad encoding", []string{"split", "--enc", "no-such-charset", src}},
		{"bad collisions", []string{"split", "--collisions", "ignore", src}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			err := newSplitCommand().Run(ctx, tt.args)
			var ue *UsageError
			if !errors.As(err, &ue) {
				t.Errorf("Run() error = %v, want UsageError", err)
			}
		})
	}
}

func TestRun_MissingSource(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	err := newSplitCommand().Run(ctx, []string{"split", filepath.Join(t.TempDir(), "missing.twee")})
	if err == nil {
		t.Fatal("expected error")
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		t.Error("missing source is not a usage error")
	}
}

func TestProcess_DebugReport(t *testing.T) {
	ctx, env := setupTestEnv(t)
	name := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&config.ReporterConfig{Destination: name}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	src := copySample(t)
	dst := filepath.Join(t.TempDir(), "out")
	if err := process(ctx, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readReport(t, name)
	for _, want := range []string{"MANIFEST", "layout.txt", "source/story.twee", "output/Start.twee", "output/StyleSheet/main.css"} {
		if _, ok := entries[want]; !ok {
			t.Errorf("report is missing %q", want)
		}
	}
	for _, want := range []string{"Router: 5 rules", "Files: 11", "SpecialPassages/"} {
		if !strings.Contains(entries["layout.txt"], want) {
			t.Errorf("layout.txt is missing %q:\n%s", want, entries["layout.txt"])
		}
	}
}

func TestProcess_DebugReportNoPassages(t *testing.T) {
	ctx, env := setupTestEnv(t)
	name := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&config.ReporterConfig{Destination: name}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	src := filepath.Join(t.TempDir(), "empty.twee")
	if err := os.WriteFile(src, []byte("StoryTitle without marker\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := process(ctx, src, filepath.Join(t.TempDir(), "out"), zap.NewNop()); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readReport(t, name)
	if !strings.Contains(entries["layout.txt"], "Files: 0") {
		t.Errorf("layout.txt = %q, want empty layout", entries["layout.txt"])
	}
	if _, ok := entries["source/empty.twee"]; !ok {
		t.Error("report is missing source/empty.twee")
	}
	for name := range entries {
		if strings.HasPrefix(name, "output/") {
			t.Errorf("unexpected report entry %q", name)
		}
	}
}

// readReport returns content of every file in the report archive.
func readReport(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	entries := make(map[string]string)
	for _, f := range zr.File {
		r, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		entries[f.Name] = string(data)
	}
	return entries
}
