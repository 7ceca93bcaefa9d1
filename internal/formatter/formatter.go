// package formatter renders playback snapshots for the terminal (plain text, Markdown, JSON)
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/floater/internal/models"
	"github.com/desertthunder/floater/internal/shared"
)

// Format selects an output renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the names above, case-insensitively. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, s)
	}
}

// NowPlayingView is the serialized form of a snapshot.
type NowPlayingView struct {
	Playing  bool   `json:"playing"`
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Artists  string `json:"artists,omitempty"`
	Album    string `json:"album,omitempty"`
	Duration string `json:"duration,omitempty"`
	Progress string `json:"progress,omitempty"`
	Artwork  string `json:"artwork,omitempty"`
	Saved    *bool  `json:"saved,omitempty"`
}

// NewNowPlayingView flattens snap. saved is optional since the favorite lookup may not have run.
func NewNowPlayingView(snap models.PlaybackSnapshot, saved *bool) NowPlayingView {
	v := NowPlayingView{Playing: snap.IsPlaying, Saved: saved}
	if snap.Item == nil {
		return v
	}

	v.ID = snap.Item.ID
	v.Title = snap.Item.Name
	v.Artists = snap.Item.ArtistNames()
	v.Album = snap.Item.Album.Name
	v.Artwork = snap.Item.Album.Artwork()
	if snap.Item.DurationMs > 0 {
		v.Duration = FormatDuration(snap.Item.Duration())
		v.Progress = FormatDuration(time.Duration(snap.ProgressMs) * time.Millisecond)
	}
	return v
}

// Render writes the snapshot in the requested format.
func Render(snap models.PlaybackSnapshot, saved *bool, format Format, pretty bool) ([]byte, error) {
	v := NewNowPlayingView(snap, saved)
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(v, pretty)
	case FormatMarkdown:
		return ToMarkdown(v), nil
	case FormatText, "":
		return ToText(v), nil
	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, format)
	}
}

// ToText renders one line per field, or a single line when nothing is playing.
func ToText(v NowPlayingView) []byte {
	var buf bytes.Buffer
	if v.ID == "" {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "%s %s - %s\n", playIcon(v.Playing), v.Artists, v.Title)
	if v.Album != "" {
		fmt.Fprintf(&buf, "Album: %s\n", v.Album)
	}
	if v.Duration != "" {
		fmt.Fprintf(&buf, "Time: %s / %s\n", v.Progress, v.Duration)
	}
	if v.Saved != nil {
		fmt.Fprintf(&buf, "Saved: %s\n", yesNo(*v.Saved))
	}
	return buf.Bytes()
}

func ToMarkdown(v NowPlayingView) []byte {
	var buf bytes.Buffer
	if v.ID == "" {
		buf.WriteString("# Nothing playing\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "# %s\n\n", v.Title)
	if v.Artwork != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", v.Artwork)
	}
	fmt.Fprintf(&buf, "**Artists**: %s\n", v.Artists)
	if v.Album != "" {
		fmt.Fprintf(&buf, "**Album**: %s\n", v.Album)
	}
	if v.Duration != "" {
		fmt.Fprintf(&buf, "**Duration**: %s\n", v.Duration)
	}
	fmt.Fprintf(&buf, "**Status**: %s\n", status(v.Playing))
	if v.Saved != nil {
		fmt.Fprintf(&buf, "**Saved**: %s\n", yesNo(*v.Saved))
	}
	return buf.Bytes()
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteArtwork saves image bytes to path, creating parent directories.
func WriteArtwork(data []byte, path string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: artwork", shared.ErrNoData)
	}
	if path == "" {
		path = "cover.jpg"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	return path, nil
}

func playIcon(playing bool) string {
	if playing {
		return "▶"
	}
	return "⏸"
}

func status(playing bool) string {
	if playing {
		return "playing"
	}
	return "paused"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
