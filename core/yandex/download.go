package yandex

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/zorins376-hub/music-bot/logger"
)

const signSalt = "XGRlBW9FXlekgbPrRHuSiA"

type downloadVariant struct {
	Codec           string `json:"codec"`
	BitrateInKbps   int    `json:"bitrateInKbps"`
	DownloadInfoURL string `json:"downloadInfoUrl"`
}

type downloadInfoResponse struct {
	Result []downloadVariant `json:"result"`
}

type downloadInfo struct {
	XMLName xml.Name `xml:"download-info"`
	Host    string   `xml:"host"`
	Path    string   `xml:"path"`
	TS      string   `xml:"ts"`
	S       string   `xml:"s"`
}

// pickVariant returns the best mp3 not above bitrate, or the lowest mp3 when
// every variant is above it.
func pickVariant(variants []downloadVariant, bitrate int) (downloadVariant, bool) {
	var mp3 []downloadVariant
	for _, v := range variants {
		if v.Codec == "mp3" && v.DownloadInfoURL != "" {
			mp3 = append(mp3, v)
		}
	}
	if len(mp3) == 0 {
		return downloadVariant{}, false
	}
	sort.Slice(mp3, func(i, j int) bool { return mp3[i].BitrateInKbps > mp3[j].BitrateInKbps })
	for _, v := range mp3 {
		if v.BitrateInKbps <= bitrate {
			return v, true
		}
	}
	return mp3[len(mp3)-1], true
}

// fileURL signs the storage path the way the download host expects.
func (c *Client) fileURL(info downloadInfo) string {
	path := info.Path
	trimmed := path
	if len(trimmed) > 0 {
		trimmed = trimmed[1:]
	}
	sum := md5.Sum([]byte(signSalt + trimmed + info.S))
	return fmt.Sprintf("%s://%s/get-mp3/%s/%s%s", c.fileScheme, info.Host, hex.EncodeToString(sum[:]), info.TS, path)
}

// DownloadTrack saves the track as dir/ym_<id>.mp3.
func (c *Client) DownloadTrack(ctx context.Context, trackID int64, bitrate int, dir string) (string, error) {
	var variants downloadInfoResponse
	var header http.Header
	err := c.authorized(ctx, func(h http.Header) error {
		header = h
		return c.http.GetJSON(ctx, fmt.Sprintf("%s/tracks/%d/download-info", c.baseURL, trackID), h, &variants)
	})
	if err != nil {
		return "", fmt.Errorf("failed to get download info for %d: %w", trackID, err)
	}

	variant, ok := pickVariant(variants.Result, bitrate)
	if !ok {
		return "", fmt.Errorf("no mp3 variant for track %d", trackID)
	}

	raw, err := c.http.GetBytes(ctx, variant.DownloadInfoURL, header)
	if err != nil {
		return "", fmt.Errorf("failed to fetch download xml for %d: %w", trackID, err)
	}
	var info downloadInfo
	if err := xml.Unmarshal(raw, &info); err != nil {
		return "", fmt.Errorf("failed to parse download xml for %d: %w", trackID, err)
	}

	dst := filepath.Join(dir, fmt.Sprintf("ym_%d.mp3", trackID))
	n, err := c.http.Download(ctx, c.fileURL(info), dst, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download track %d: %w", trackID, err)
	}
	logger.Debug("[Yandex] downloaded",
		logger.Int64("track_id", trackID),
		logger.Int("bitrate", variant.BitrateInKbps),
		logger.Int64("bytes", n))
	return dst, nil
}
