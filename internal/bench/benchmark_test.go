package bench

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/skelly-dev/picgraph/internal/graph"
)

func BenchmarkBuild_MediumLibrary(b *testing.B) {
	root := b.TempDir()
	createSyntheticLibrary(b, root, 250)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	for _, workers := range []int{1, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			builder := graph.NewBuilder([]graph.Library{{Prefix: "pdk", Path: root}},
				graph.WithLogger(logger), graph.WithWorkers(workers))
			for i := 0; i < b.N; i++ {
				cg, err := builder.Build(context.Background())
				if err != nil {
					b.Fatalf("build failed: %v", err)
				}
				if len(cg.Functions) == 0 {
					b.Fatalf("expected functions")
				}
			}
		})
	}
}

func createSyntheticLibrary(tb testing.TB, root string, files int) {
	tb.Helper()

	for i := 0; i < files; i++ {
		dir := filepath.Join(root, fmt.Sprintf("cells%d", i%10))
		if err := os.MkdirAll(dir, 0755); err != nil {
			tb.Fatalf("mkdir failed: %v", err)
		}

		filePath := filepath.Join(dir, fmt.Sprintf("cell_%03d.py", i))
		src := fmt.Sprintf(`from functools import partial

import gdsfactory as gf

@gf.cell
def cell%d(width=0.5, length=%d.0) -> gf.Component:
    return helper%d(width) + gf.get_component("straight")

def helper%d(width):
    return width

narrow%d = partial(cell%d, width=0.2)
`, i, i, i, i, i, i)
		if err := os.WriteFile(filePath, []byte(src), 0644); err != nil {
			tb.Fatalf("write failed: %v", err)
		}

		if i%25 == 0 {
			netlist := fmt.Sprintf("instances:\n  a:\n    component: cell%d\n  b:\n    component: narrow%d\n", i, i)
			if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("top_%03d.pic.yml", i)), []byte(netlist), 0644); err != nil {
				tb.Fatalf("write failed: %v", err)
			}
		}
	}
}
