package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/cheminova/sdmbatch/internal/frames"
)

// --- Naming tests ---

func TestFrameName(t *testing.T) {
	if got := FrameName(3, "JPG"); got != "L (3).JPG" {
		t.Errorf("FrameName(3, JPG) = %q", got)
	}
	if got := FrameName(10, "PNG"); got != "L (10).PNG" {
		t.Errorf("FrameName(10, PNG) = %q", got)
	}
}

func TestParseFrameName(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want int
		ok   bool
	}{
		{"L (1).JPG", "JPG", 1, true},
		{"L (12).JPG", "JPG", 12, true},
		{"L (12).jpg", "JPG", 0, false},
		{"L (01).JPG", "JPG", 0, false},
		{"L (0).JPG", "JPG", 0, false},
		{"L(1).JPG", "JPG", 0, false},
		{"L (1).PNG", "JPG", 0, false},
		{"mask.JPG", "JPG", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFrameName(tt.name, tt.ext)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseFrameName(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// --- Verify tests ---

func frameFS(ext string, idx ...int) fstest.MapFS {
	m := fstest.MapFS{}
	for _, i := range idx {
		m[FrameName(i, ext)] = &fstest.MapFile{Data: []byte("x")}
	}
	return m
}

func TestVerify_ExactMissingOne(t *testing.T) {
	fsys := frameFS("JPG", 1, 2, 4, 5, 6, 7, 8, 9, 10)
	_, err := Verify(fsys, "SDM_in.data", "JPG", 10)

	var mf *MissingFramesError
	if !errors.As(err, &mf) {
		t.Fatalf("Verify error = %v, want *MissingFramesError", err)
	}
	if !reflect.DeepEqual(mf.Missing, []string{"L (3).JPG"}) {
		t.Errorf("Missing = %v, want [L (3).JPG]", mf.Missing)
	}
}

func TestVerify_NamesEveryMissingFrame(t *testing.T) {
	fsys := frameFS("PNG", 2, 5)
	r, err := Verify(fsys, "d", "PNG", 6)
	var mf *MissingFramesError
	if !errors.As(err, &mf) {
		t.Fatalf("Verify error = %v, want *MissingFramesError", err)
	}
	want := []string{"L (1).PNG", "L (3).PNG", "L (4).PNG", "L (6).PNG"}
	if !reflect.DeepEqual(mf.Missing, want) {
		t.Errorf("Missing = %v, want %v", mf.Missing, want)
	}
	if !reflect.DeepEqual(r.Present, []string{"L (2).PNG", "L (5).PNG"}) {
		t.Errorf("Present = %v", r.Present)
	}
}

func TestVerify_ExtrasAreReportedNotRejected(t *testing.T) {
	fsys := frameFS("JPG", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	r, err := Verify(fsys, "d", "JPG", 10)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !reflect.DeepEqual(r.Extra, []string{"L (11).JPG", "L (12).JPG"}) {
		t.Errorf("Extra = %v, want [L (11).JPG L (12).JPG]", r.Extra)
	}
	if len(r.Present) != 10 {
		t.Errorf("Present = %d, want 10", len(r.Present))
	}
}

func TestVerify_IgnoresMaskAndStrays(t *testing.T) {
	fsys := frameFS("JPG", 1, 2, 3)
	fsys["mask.jpg"] = &fstest.MapFile{}
	fsys["L (4).jpg"] = &fstest.MapFile{}
	fsys["thumbs.db"] = &fstest.MapFile{}
	fsys["L (9).JPG/inner"] = &fstest.MapFile{} // a directory, not a frame

	r, err := Verify(fsys, "d", "JPG", 3)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(r.Extra) != 0 {
		t.Errorf("Extra = %v, want none", r.Extra)
	}
}

func TestVerify_NeverReadsContent(t *testing.T) {
	// Zero-byte frames pass: only names are checked.
	fsys := fstest.MapFS{}
	for _, n := range ExpectedNames(10, "JPG") {
		fsys[n] = &fstest.MapFile{}
	}
	if _, err := Verify(fsys, "d", "JPG", 10); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyDir_MissingDirectory(t *testing.T) {
	_, err := VerifyDir(filepath.Join(t.TempDir(), "SDM_in.data"), "JPG", 10)
	if err == nil {
		t.Fatal("VerifyDir on a missing dir should fail")
	}
	var mf *MissingFramesError
	if errors.As(err, &mf) {
		t.Error("a missing directory is a filesystem error, not MissingFramesError")
	}
}

// --- Builder tests ---

type recLog struct{ debug, info []string }

func (r *recLog) Info(f string, a ...interface{}) { r.info = append(r.info, fmt.Sprintf(f, a...)) }
func (r *recLog) Debug(v bool, f string, a ...interface{}) {
	if v {
		r.debug = append(r.debug, fmt.Sprintf(f, a...))
	}
}

func writeSource(t *testing.T, dir string, n int, ext string) []frames.ImageAsset {
	t.Helper()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("IMG_%d%s", i, ext)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	assets, err := frames.List(dir, ext)
	if err != nil {
		t.Fatal(err)
	}
	return assets
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func TestBuild_RenamesAndCopiesMask(t *testing.T) {
	src := t.TempDir()
	assets := writeSource(t, src, 25, ".jpg")
	if err := os.WriteFile(filepath.Join(src, "mask.jpg"), []byte("mask"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(src, "SDM_in.data")
	log := &recLog{}
	b := &Builder{FrameExt: "JPG", MaskName: "mask.jpg", Verbose: true, Log: log}

	res, err := b.Build(src, frames.Select(assets, 10), dest)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Frames) != 10 || res.Mask != "mask.jpg" {
		t.Errorf("BuildResult = %+v", res)
	}
	// 25/10 = step 2, so L (2) is the third source file in natural order.
	got, _ := os.ReadFile(filepath.Join(dest, "L (2).JPG"))
	if string(got) != "IMG_2.jpg" {
		t.Errorf("L (2).JPG content = %q, want IMG_2.jpg", got)
	}
	if _, err := VerifyDir(dest, "JPG", 10); err != nil {
		t.Errorf("built layout fails verification: %v", err)
	}
	if len(log.debug) != 11 {
		t.Errorf("verbose trace lines = %d, want 11", len(log.debug))
	}
	// Sources are untouched.
	if _, err := os.Stat(filepath.Join(src, "IMG_0.jpg")); err != nil {
		t.Errorf("source frame removed: %v", err)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	src := t.TempDir()
	assets := writeSource(t, src, 12, ".png")
	dest := filepath.Join(t.TempDir(), "deep", "SDM_in.data")
	b := &Builder{FrameExt: "PNG", MaskName: "mask.png"}

	sel := frames.Select(assets, 10)
	if _, err := b.Build(src, sel, dest); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	first := dirNames(t, dest)
	if _, err := b.Build(src, sel, dest); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	second := dirNames(t, dest)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("file set changed: %v -> %v", first, second)
	}
	if len(second) != 10 {
		t.Errorf("got %d files, want 10 (no mask, no temp files)", len(second))
	}
}

func TestBuild_KeepsExistingMaskWhenSourceHasNone(t *testing.T) {
	src := t.TempDir()
	assets := writeSource(t, src, 3, ".png")
	if err := os.WriteFile(filepath.Join(src, "mask.png"), []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "SDM_in.data")
	b := &Builder{FrameExt: "PNG", MaskName: "mask.png"}
	if _, err := b.Build(src, assets, dest); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(src, "mask.png")); err != nil {
		t.Fatal(err)
	}
	log := &recLog{}
	b.Log = log
	res, err := b.Build(src, assets, dest)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mask != "" {
		t.Errorf("Mask = %q, want empty on second build", res.Mask)
	}
	if _, err := os.Stat(filepath.Join(dest, "mask.png")); err != nil {
		t.Errorf("existing mask was deleted: %v", err)
	}
	if len(log.info) != 1 {
		t.Errorf("expected one advisory note about the missing mask, got %v", log.info)
	}
}

func TestBuild_MissingSourceFails(t *testing.T) {
	src := t.TempDir()
	b := &Builder{FrameExt: "JPG"}
	sel := []frames.ImageAsset{{Name: "gone.jpg", Dir: src}}
	if _, err := b.Build(src, sel, filepath.Join(src, "out")); err == nil {
		t.Error("Build with a missing source frame should fail")
	}
}

func TestBuild_PrunesFramesBeyondSelection(t *testing.T) {
	src := t.TempDir()
	assets := writeSource(t, src, 30, ".jpg")
	dest := filepath.Join(src, "SDM_in.data")
	b := &Builder{FrameExt: "JPG", MaskName: "mask.jpg"}

	if _, err := b.Build(src, frames.Select(assets, 12), dest); err != nil {
		t.Fatalf("Build 12: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := b.Build(src, frames.Select(assets, 10), dest)
	if err != nil {
		t.Fatalf("Build 10: %v", err)
	}
	if !reflect.DeepEqual(res.Pruned, []string{"L (11).JPG", "L (12).JPG"}) {
		t.Errorf("Pruned = %v", res.Pruned)
	}
	r, err := VerifyDir(dest, "JPG", 10)
	if err != nil {
		t.Fatalf("VerifyDir: %v", err)
	}
	if len(r.Extra) != 0 {
		t.Errorf("Extra = %v, want none", r.Extra)
	}
	if _, err := os.Stat(filepath.Join(dest, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
