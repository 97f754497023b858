package filesink

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/user/pagecast/pkg/mocks"
)

var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem())

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveRawFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	data := []byte{0xFF, 0xD8, 0xFF} // JPEG header
	if err := sink.SaveRawFrame(0, data); err != nil {
		t.Fatalf("SaveRawFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-0000.jpg")
	saved, ok := fs.Files[expectedPath]
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != string(data) {
		t.Errorf("expected %v, got %v", data, saved)
	}
}

func TestSink_MultipleRawFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	for i := 0; i < 10; i++ {
		if err := sink.SaveRawFrame(i, []byte{0xFF}); err != nil {
			t.Fatalf("SaveRawFrame %d failed: %v", i, err)
		}
	}

	if len(fs.Files) != 10 {
		t.Errorf("expected 10 files, got %d", len(fs.Files))
	}
	for i := 0; i < 10; i++ {
		path := filepath.Join(testBaseDir, "frames", fmt.Sprintf("frame-%04d.jpg", i))
		if _, ok := fs.Files[path]; !ok {
			t.Errorf("expected file at %s", path)
		}
	}
}
