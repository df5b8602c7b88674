package output

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/afero"
)

func writeAll(t *testing.T, cfg OutputConfig, data string) {
	t.Helper()
	writer, err := CreateWriter(cfg)
	if err != nil {
		t.Fatalf("CreateWriter() error = %v", err)
	}
	if _, err := writer.Write([]byte(data)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) []byte {
	t.Helper()
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read output file %s: %v", path, err)
	}
	return content
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

func TestCreateOutputWriter_NoCompression(t *testing.T) {
	fs := afero.NewMemMapFs()
	testData := "test,data,row\n1,2,3\n"

	writeAll(t, OutputConfig{Fs: fs, Format: "csv", Compression: "none", Path: "/test.csv"}, testData)

	if got := string(readFile(t, fs, "/test.csv")); got != testData {
		t.Errorf("File content = %q, want %q", got, testData)
	}
}

func TestCreateOutputWriter_Compressed(t *testing.T) {
	testData := strings.Repeat("line,with,data\n", 1000)

	tests := []struct {
		compression string
		path        string
		decompress  func(r io.Reader) (io.Reader, error)
	}{
		{"gzip", "/test.csv.gz", func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
		{"zstd", "/test.csv.zst", func(r io.Reader) (io.Reader, error) { return zstd.NewReader(r) }},
		{"lz4", "/test.csv.lz4", func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }},
	}

	for _, tt := range tests {
		t.Run(tt.compression, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeAll(t, OutputConfig{Fs: fs, Format: "csv", Compression: tt.compression, Path: "/test.csv"}, testData)

			raw := readFile(t, fs, tt.path)
			if len(raw) >= len(testData) {
				t.Errorf("compressed size %d not smaller than %d", len(raw), len(testData))
			}
			r, err := tt.decompress(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			content, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if string(content) != testData {
				t.Errorf("Decompressed content differs (%d bytes, want %d)", len(content), len(testData))
			}
		})
	}
}

func TestCreateOutputWriter_AlreadyHasExtension(t *testing.T) {
	tests := []struct {
		compression string
		path        string
	}{
		{"gzip", "/test.csv.gz"},
		{"zstd", "/test.csv.zst"},
		{"lz4", "/test.csv.lz4"},
		{"zip", "/test.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.compression, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeAll(t, OutputConfig{Fs: fs, Format: "json", Compression: tt.compression, Path: tt.path}, "test data")

			if !exists(fs, tt.path) {
				t.Errorf("Expected file %s does not exist", tt.path)
			}
			doubled := OutputConfig{Path: tt.path, Compression: tt.compression}.FinalPath()
			if doubled != tt.path {
				t.Errorf("FinalPath(%q) = %q, extension added twice", tt.path, doubled)
			}
		})
	}
}

func TestCreateOutputWriter_ZIP(t *testing.T) {
	fs := afero.NewMemMapFs()
	testData := "test,data,row\n1,2,3\n"
	writeAll(t, OutputConfig{Fs: fs, Format: "csv", Compression: "zip", Path: "/test.csv"}, testData)

	raw := readFile(t, fs, "/test.zip")
	zipReader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("Failed to open zip file: %v", err)
	}
	if len(zipReader.File) != 1 {
		t.Fatalf("Expected 1 file in zip, got %d", len(zipReader.File))
	}

	entry := zipReader.File[0]
	if entry.Name != "test.csv" {
		t.Errorf("Zip entry name = %q, want test.csv", entry.Name)
	}
	rc, err := entry.Open()
	if err != nil {
		t.Fatalf("Failed to open zip entry: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Failed to read zip content: %v", err)
	}
	if string(content) != testData {
		t.Errorf("Zip content = %q, want %q", content, testData)
	}
}

func TestCreateOutputWriter_ZIPRejectsAppend(t *testing.T) {
	_, err := CreateWriter(OutputConfig{Fs: afero.NewMemMapFs(), Compression: "zip", Path: "/a.zip", Append: true})
	if err == nil {
		t.Fatal("CreateWriter() expected error for zip with append")
	}
}

func TestCreateOutputWriter_InvalidCompression(t *testing.T) {
	_, err := CreateWriter(OutputConfig{Fs: afero.NewMemMapFs(), Format: "csv", Compression: "invalid", Path: "/test.csv"})
	if err == nil {
		t.Fatal("CreateWriter() expected error for invalid compression, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported compression") {
		t.Errorf("Error message should contain 'unsupported compression', got: %v", err)
	}
}

func TestCreateOutputWriter_CompressionCaseInsensitive(t *testing.T) {
	for _, compression := range []string{"gzip", "GZIP", "GzIp", "zip", "ZIP", "none", "NONE", "", "zstd", "ZsTd", "LZ4", "  gzip  "} {
		t.Run(compression, func(t *testing.T) {
			writer, err := CreateWriter(OutputConfig{Fs: afero.NewMemMapFs(), Format: "csv", Compression: compression, Path: "/test.csv"})
			if err != nil {
				t.Fatalf("CreateWriter() unexpected error: %v", err)
			}
			writer.Write([]byte("test"))
			if err := writer.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestCreateOutputWriter_Append(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := OutputConfig{Fs: fs, Path: "/log.csv", Append: true, EnableBOM: true}

	writeAll(t, cfg, "first\n")
	writeAll(t, cfg, "second\n")

	got := readFile(t, fs, "/log.csv")
	want := append([]byte{0xEF, 0xBB, 0xBF}, "first\nsecond\n"...)
	if !bytes.Equal(got, want) {
		t.Errorf("content = %q, want %q", got, want)
	}

	cfg.Append = false
	writeAll(t, cfg, "third\n")
	got = readFile(t, fs, "/log.csv")
	want = append([]byte{0xEF, 0xBB, 0xBF}, "third\n"...)
	if !bytes.Equal(got, want) {
		t.Errorf("overwrite content = %q, want %q", got, want)
	}
}

func TestCreateOutputWriter_Encodings(t *testing.T) {
	tests := []struct {
		encoding string
		bom      bool
		input    string
		want     []byte
	}{
		{"utf-8", false, "ä", []byte("ä")},
		{"utf-8", true, "ä", []byte{0xEF, 0xBB, 0xBF, 0xC3, 0xA4}},
		{"windows-1252", false, "ä€", []byte{0xE4, 0x80}},
		{"ansi", true, "aä", []byte{'a', 0xE4}},
		{"ascii", false, "Ensimmäinen", []byte("Ensimm?inen")},
		{"iso-8859-1", false, "ä€", []byte{0xE4, '?'}},
		{"1252", false, "ä", []byte{0xE4}},
		{"850", false, "ä", []byte{0x84}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeAll(t, OutputConfig{Fs: fs, Path: "/out.txt", Encoding: tt.encoding, EnableBOM: tt.bom}, tt.input)
			if got := readFile(t, fs, "/out.txt"); !bytes.Equal(got, tt.want) {
				t.Errorf("bytes = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestCreateOutputWriter_CharRefs(t *testing.T) {
	tests := []struct {
		encoding string
		input    string
		want     string
	}{
		{"ascii", "<a>Ensimmäinen €</a>", "<a>Ensimm&#xE4;inen &#x20AC;</a>"},
		{"iso-8859-1", "ä€", "\xe4&#x20AC;"},
		{"windows-1252", "ä€😀", "\xe4\x80&#x1F600;"},
		{"big5", "中😀", "\xa4\xa4&#128512;"},
		{"utf-8", "ä€", "ä€"},
	}
	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeAll(t, OutputConfig{Fs: fs, Path: "/out.xml", Encoding: tt.encoding, CharRefs: true}, tt.input)
			if got := string(readFile(t, fs, "/out.xml")); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateOutputWriter_UnknownEncoding(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := CreateWriter(OutputConfig{Fs: fs, Path: "/out.txt", Encoding: "klingon-9000"})
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("CreateWriter() error = %v, want ErrUnknownEncoding", err)
	}
	if exists(fs, "/out.txt") {
		t.Error("file should not be created when the encoding is unknown")
	}
}

func TestResolveEncodingNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "UTF-8"},
		{"UTF8", "UTF-8"},
		{"us-ascii", "US-ASCII"},
		{"ANSI", "windows-1252"},
		{"iso-8859-15", "ISO-8859-15"},
	}
	for _, tt := range tests {
		enc, err := ResolveEncoding(tt.in, false)
		if err != nil {
			t.Errorf("ResolveEncoding(%q) error: %v", tt.in, err)
			continue
		}
		if enc.Name != tt.want {
			t.Errorf("ResolveEncoding(%q).Name = %q, want %q", tt.in, enc.Name, tt.want)
		}
	}
}

func TestFinalPath(t *testing.T) {
	tests := []struct {
		path        string
		compression string
		want        string
	}{
		{"out.csv", "none", "out.csv"},
		{"out.csv", "", "out.csv"},
		{"out.csv", "gzip", "out.csv.gz"},
		{"out.csv.GZ", "gzip", "out.csv.GZ"},
		{"out.json", "zstd", "out.json.zst"},
		{"out.xml", "lz4", "out.xml.lz4"},
		{"out.csv", "zip", "out.zip"},
	}
	for _, tt := range tests {
		cfg := OutputConfig{Path: tt.path, Compression: tt.compression}
		if got := cfg.FinalPath(); got != tt.want {
			t.Errorf("FinalPath(%q, %q) = %q, want %q", tt.path, tt.compression, got, tt.want)
		}
	}
}

func TestDetermineZipEntryName(t *testing.T) {
	tests := []struct {
		name       string
		outputPath string
		format     string
		expected   string
	}{
		{"basic csv file", "/path/to/output.zip", "csv", "output.csv"},
		{"json file", "/path/to/data.zip", "json", "data.json"},
		{"xml file", "/path/to/export.zip", "xml", "export.xml"},
		{"file already has format extension", "/path/to/output.csv.zip", "csv", "output.csv"},
		{"uppercase ZIP extension", "/path/to/DATA.ZIP", "json", "data.json"},
		{"empty filename defaults to export", "/path/to/.zip", "csv", "export.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := determineZipEntryName(tt.outputPath, tt.format)
			if result != tt.expected {
				t.Errorf("determineZipEntryName(%q, %q) = %q, want %q",
					tt.outputPath, tt.format, result, tt.expected)
			}
		})
	}
}

func TestCompositeWriteCloser_NilCloseFunc(t *testing.T) {
	var buf bytes.Buffer
	writer := &compositeWriteCloser{Writer: &buf}

	if err := writer.Close(); err != nil {
		t.Errorf("Close() with nil closeFunc should not error, got: %v", err)
	}
}

func TestFixExtension(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ext   string
		want  string
	}{
		{"no extension", "data", ".zip", "data.zip"},
		{"no extension zip", "data.csv", ".zip", "data.zip"},
		{"already correct zip", "data.csv.zip", ".zip", "data.csv.zip"},
		{"different compression extension", "data.txt", ".bz2", "data.bz2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fixExtension(tt.input, tt.ext)
			if got != tt.want {
				t.Errorf("fixExtension(%q, %q) = %q, want %q", tt.input, tt.ext, got, tt.want)
			}
		})
	}
}

func BenchmarkCreateOutputWriter_GZIP(b *testing.B) {
	fs := afero.NewMemMapFs()
	for i := 0; i < b.N; i++ {
		writer, _ := CreateWriter(OutputConfig{Fs: fs, Format: "csv", Compression: "gzip", Path: "/bench.csv"})
		writer.Write([]byte("test,data,row\n"))
		writer.Close()
	}
}
