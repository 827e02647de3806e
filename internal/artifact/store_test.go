package artifact

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testName = "eth_liquidation_heatmap_20250101_120000_24_hour.png"

func TestSaveWritesImageAndSidecar(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	meta := Meta{Name: testName, Symbol: "ETH", Timeframe: "24 hour", Width: 4, Height: 2, CapturedAt: time.Unix(100, 0).UTC()}
	path, err := store.Save(meta, []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save() = %v; want nil", err)
	}
	if path != filepath.Join(store.Dir(), testName) {
		t.Fatalf("Save() path = %q", path)
	}
	got, err := store.Get(testName)
	if err != nil {
		t.Fatalf("Get() = %v; want nil", err)
	}
	if got.SizeBytes != len("png-bytes") || got.Symbol != "ETH" {
		t.Fatalf("Get() = %+v", got)
	}
}

func TestSaveRefusesExistingName(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	meta := Meta{Name: testName}
	if _, err := store.Save(meta, []byte("a")); err != nil {
		t.Fatalf("first Save() = %v", err)
	}
	_, err := store.Save(meta, []byte("b"))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("second Save() = %v; want ErrExists", err)
	}
	data, _ := store.ReadImage(testName)
	if string(data) != "a" {
		t.Fatalf("image overwritten: %q", data)
	}
}

func TestSaveRejectsInvalidName(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	for _, name := range []string{"../escape.png", "btc.png", "btc_liquidation_heatmap_20250101_120000_24_hour.jpg"} {
		if _, err := store.Save(Meta{Name: name}, nil); err == nil {
			t.Fatalf("Save(%q) = nil; want error", name)
		}
	}
}

func TestValidNameAcceptsCollisionSuffix(t *testing.T) {
	if !ValidName("btc_liquidation_heatmap_20250101_120000-2_3_month.png") {
		t.Fatal("ValidName() = false; want true")
	}
}

func TestTakeRemovesFiles(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	path, err := store.Save(Meta{Name: testName}, []byte("img"))
	if err != nil {
		t.Fatalf("Save() = %v", err)
	}
	data, err := store.Take(path)
	if err != nil {
		t.Fatalf("Take() = %v", err)
	}
	if string(data) != "img" {
		t.Fatalf("Take() = %q; want img", data)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("image still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), sidecar(testName))); !os.IsNotExist(err) {
		t.Fatalf("sidecar still present: %v", err)
	}
}

func TestListAndPruneByAge(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	old := Meta{Name: "btc_liquidation_heatmap_20240101_000000_12_hour.png", CapturedAt: time.Unix(1000, 0)}
	fresh := Meta{Name: "btc_liquidation_heatmap_20250101_000000_12_hour.png", CapturedAt: time.Unix(5000, 0)}
	for _, m := range []Meta{old, fresh} {
		if _, err := store.Save(m, []byte("x")); err != nil {
			t.Fatalf("Save() = %v", err)
		}
	}
	metas, err := store.List()
	if err != nil || len(metas) != 2 || metas[0].Name != fresh.Name {
		t.Fatalf("List() = %+v, %v", metas, err)
	}
	n, err := store.Prune(time.Unix(3000, 0))
	if err != nil || n != 1 {
		t.Fatalf("Prune() = %d, %v; want 1, nil", n, err)
	}
	metas, _ = store.List()
	if len(metas) != 1 || metas[0].Name != fresh.Name {
		t.Fatalf("List() after prune = %+v", metas)
	}
}

func TestDeleteLogsImageCleanupFailureWhenImageMissing(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	if err := os.WriteFile(filepath.Join(store.Dir(), sidecar(testName)), []byte("{}"), 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if err := store.Delete(testName); err != nil {
		t.Fatalf("Delete() = %v; want nil", err)
	}
	if !strings.Contains(buf.String(), "artifact image cleanup failed") {
		t.Fatalf("expected image cleanup debug log, got %q", buf.String())
	}
}
