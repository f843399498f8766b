package tagging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/bogem/id3v2/v2"
)

func TestTagWritesMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	audio := []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00, 0x00, 0x00}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		t.Fatal(err)
	}

	c := model.Candidate{ExternalID: "yt_abc", Title: "Bones", Artist: "Imagine Dragons", ReleaseYear: 2022}
	if err := NewID3("blackroom").Tag(path, c); err != nil {
		t.Fatalf("Tag: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	if tag.Title() != "Bones" || tag.Artist() != "Imagine Dragons" || tag.Year() != "2022" {
		t.Errorf("tags = %q %q %q", tag.Title(), tag.Artist(), tag.Year())
	}
	frames := tag.GetFrames(tag.CommonID("User defined text information frame"))
	found := false
	for _, f := range frames {
		if udf, ok := f.(id3v2.UserDefinedTextFrame); ok && udf.Description == "EXTERNAL_ID" && udf.Value == "yt_abc" {
			found = true
		}
	}
	if !found {
		t.Error("EXTERNAL_ID frame missing")
	}
}

func TestTagMissingFile(t *testing.T) {
	err := NewID3("").Tag(filepath.Join(t.TempDir(), "absent.mp3"), model.Candidate{Title: "x"})
	if err == nil {
		t.Fatal("want error for missing file")
	}
}
