package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perf-diff/pkg/compression"
)

type testData struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestJSONWriter_Write(t *testing.T) {
	data := testData{Name: "a<b", Value: 42}

	t.Run("compact output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewJSONWriter[testData]().Write(data, &buf); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		expected := `{"name":"a<b","value":42}` + "\n"
		if buf.String() != expected {
			t.Errorf("got %q, want %q", buf.String(), expected)
		}
	})

	t.Run("pretty output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewPrettyJSONWriter[testData]().Write(data, &buf); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"name\"") {
			t.Errorf("output is not indented: %q", buf.String())
		}
	})
}

func TestJSONWriter_RoundTrip(t *testing.T) {
	data := testData{Name: strings.Repeat("frame;", 100), Value: 7}

	for _, typ := range []compression.Type{compression.TypeNone, compression.TypeGzip, compression.TypeZstd} {
		t.Run(string(typ), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report.json"+typ.Extension())

			w := NewCompressedJSONWriter[testData](typ, compression.LevelDefault)
			if err := w.WriteToFile(data, path); err != nil {
				t.Fatalf("WriteToFile failed: %v", err)
			}

			decoded, err := ReadFile[testData](path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if decoded != data {
				t.Errorf("decoded data mismatch: got %+v, want %+v", decoded, data)
			}
		})
	}
}

func TestJSONWriter_WriteToFileWithStats(t *testing.T) {
	data := testData{Name: strings.Repeat("x", 1000), Value: 1}
	path := filepath.Join(t.TempDir(), "report.json.gz")

	w := NewCompressedJSONWriter[testData](compression.TypeGzip, compression.LevelBest)
	result, err := w.WriteToFileWithStats(data, path)
	if err != nil {
		t.Fatalf("WriteToFileWithStats failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if result.CompressedSize != info.Size() {
		t.Errorf("CompressedSize = %d, file size %d", result.CompressedSize, info.Size())
	}
	if result.JSONSize <= result.CompressedSize {
		t.Errorf("JSONSize %d should exceed CompressedSize %d", result.JSONSize, result.CompressedSize)
	}
	if result.CompressionPct <= 0 || result.CompressionPct >= 100 {
		t.Errorf("CompressionPct = %f", result.CompressionPct)
	}
}

func TestJSONWriter_WriteToFile_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.json")
	if err := NewJSONWriter[testData]().WriteToFile(testData{}, path); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
