package probe

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pressbox/internal/services"
)

var commandContext = exec.CommandContext

// pipeWaitDelay bounds how long a finished or killed ffprobe may keep its
// output pipes open (a forked grandchild inherits them) before they are
// forcibly closed. Without it, Output blocks past the probe timeout.
const pipeWaitDelay = time.Second

// Info summarizes the source asset metadata the pipeline plans against.
type Info struct {
	DurationSeconds float64
	Width           int
	Height          int
	SizeBytes       int64
	HasAudio        bool
	Container       string
	VideoCodec      string
}

type ffprobeResult struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeFormat struct {
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect opens the source container with ffprobe and extracts duration,
// native resolution, size, and audio presence. The call is bounded by timeout
// so an unreadable or wedged source can never hang the pipeline; all failures
// surface as ErrUnreadableSource.
func Inspect(ctx context.Context, binary, path string, timeout time.Duration) (Info, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, services.Wrap(services.ErrUnreadableSource, "probe", "inspect", "empty source path", nil)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrUnreadableSource, "probe", "stat source", "source asset is not readable", err)
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.WaitDelay = pipeWaitDelay
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, services.Wrap(services.ErrUnreadableSource, "probe", "inspect", "probe timed out", ctx.Err())
		}
		return Info{}, services.Wrap(services.ErrUnreadableSource, "probe", "inspect", "ffprobe could not open the container", err)
	}

	var result ffprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return Info{}, services.Wrap(services.ErrUnreadableSource, "probe", "parse metadata", "ffprobe output was not valid JSON", err)
	}

	info := Info{
		DurationSeconds: parseFloat(result.Format.Duration),
		SizeBytes:       stat.Size(),
		Container:       strings.TrimSpace(result.Format.FormatName),
	}
	if size := parseFloat(result.Format.Size); size > 0 {
		info.SizeBytes = int64(size)
	}
	for _, stream := range result.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			if info.Width == 0 && stream.Width > 0 {
				info.Width = stream.Width
				info.Height = stream.Height
				info.VideoCodec = strings.TrimSpace(stream.CodecName)
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.DurationSeconds <= 0 || info.Width <= 0 || info.Height <= 0 {
		return Info{}, services.Wrap(
			services.ErrUnreadableSource,
			"probe",
			"validate metadata",
			"source metadata missing duration or resolution",
			nil,
		)
	}
	return info, nil
}

// UnderTarget reports whether the source already satisfies the target size.
func (i Info) UnderTarget(targetSizeBytes int64) bool {
	return i.SizeBytes <= targetSizeBytes
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
