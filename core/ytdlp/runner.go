package ytdlp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zorins376-hub/music-bot/logger"

	"github.com/lrstanley/go-ytdlp"
)

// runner is the yt-dlp surface the provider needs.
type runner interface {
	Search(ctx context.Context, target string) ([]byte, error)
	Download(ctx context.Context, url string, bitrate int, output string) error
}

type execRunner struct {
	cookiesFile string
}

func (r execRunner) Search(ctx context.Context, target string) ([]byte, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings().
		Run(ctx, target)
	if err != nil {
		return nil, wrapRunError(err, res)
	}
	return []byte(res.Stdout), nil
}

func (r execRunner) Download(ctx context.Context, url string, bitrate int, output string) error {
	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(strconv.Itoa(bitrate) + "K").
		NoPlaylist().
		NoWarnings().
		Output(output)
	if r.cookiesFile != "" {
		cmd = cmd.Cookies(r.cookiesFile)
	}
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return wrapRunError(err, res)
	}
	return nil
}

// wrapRunError keeps yt-dlp's stderr in the message; callers classify
// failures by its text.
func wrapRunError(err error, res *ytdlp.Result) error {
	if res == nil || strings.TrimSpace(res.Stderr) == "" {
		return fmt.Errorf("yt-dlp failed: %w", err)
	}
	return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(res.Stderr))
}

// EnsureInstalled downloads a yt-dlp binary when none is on PATH.
func EnsureInstalled(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{})
	if err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	logger.Info("[YtDlp] binary ready",
		logger.String("path", resolved.Executable),
		logger.String("version", resolved.Version))
	return nil
}
