package tagging

import (
	"fmt"
	"strconv"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/bogem/id3v2/v2"
)

// ID3 writes ID3v2.4 tags to downloaded mp3 files.
type ID3 struct {
	// Comment is stored in the COMM frame when set.
	Comment string
}

func NewID3(comment string) *ID3 {
	return &ID3{Comment: comment}
}

// Tag overwrites title, artist and year with the candidate's metadata and
// records its external id in a TXXX frame.
func (t *ID3) Tag(path string, c model.Candidate) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if c.Title != "" {
		tag.SetTitle(c.Title)
	}
	if c.Artist != "" {
		tag.SetArtist(c.Artist)
	}
	if c.ReleaseYear > 0 {
		tag.SetYear(strconv.Itoa(c.ReleaseYear))
	}
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: "EXTERNAL_ID",
		Value:       c.ExternalID,
	})
	if t.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        t.Comment,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}
