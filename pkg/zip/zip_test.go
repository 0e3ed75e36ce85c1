package zip

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	entries := []Entry{
		{Filename: "sku-001.jpg", Data: []byte("first")},
		{Filename: "sku-002.png", Data: []byte("second")},
	}

	data, err := Archive(entries)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != len(entries) {
		t.Fatalf("got %d files, want %d", len(zr.File), len(entries))
	}
	for i, f := range zr.File {
		if f.Name != entries[i].Filename {
			t.Fatalf("file %d = %q, want %q", i, f.Name, entries[i].Filename)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(got, entries[i].Data) {
			t.Fatalf("content of %s = %q, want %q", f.Name, got, entries[i].Data)
		}
	}
}

func TestArchiveNoEntries(t *testing.T) {
	data, err := Archive(nil)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("got %d files, want 0", len(zr.File))
	}
}
