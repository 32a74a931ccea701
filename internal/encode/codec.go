package encode

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"pressbox/internal/services"
)

var commandContext = exec.CommandContext

// pipeWaitDelay bounds how long a finished or killed ffmpeg may keep its
// pipes open before they are forcibly closed. A forked grandchild inherits
// the pipes and would otherwise block Wait past any timeout.
const pipeWaitDelay = time.Second

// containerByCodec maps negotiated video codecs to the output container and
// audio codec the session muxes with.
var containerByCodec = map[string]struct {
	extension  string
	audioCodec string
}{
	"libx264":    {extension: ".mp4", audioCodec: "aac"},
	"libx265":    {extension: ".mp4", audioCodec: "aac"},
	"mpeg4":      {extension: ".mp4", audioCodec: "aac"},
	"libvpx-vp9": {extension: ".webm", audioCodec: "libopus"},
	"libvpx":     {extension: ".webm", audioCodec: "libopus"},
}

// Negotiate walks the ordered codec preference list and returns the first
// codec the local ffmpeg build can encode with. It never falls back silently:
// when nothing in the list is supported the caller gets ErrNoSupportedCodec.
func Negotiate(ctx context.Context, binary string, preference []string) (string, error) {
	if len(preference) == 0 {
		return "", services.Wrap(services.ErrNoSupportedCodec, "encode", "negotiate codec", "empty codec preference list", nil)
	}
	available, err := listEncoders(ctx, binary)
	if err != nil {
		return "", services.Wrap(services.ErrNoSupportedCodec, "encode", "list encoders", "failed to query ffmpeg encoder capabilities", err)
	}
	for _, codec := range preference {
		if _, ok := available[strings.TrimSpace(codec)]; ok {
			return strings.TrimSpace(codec), nil
		}
	}
	return "", services.Wrap(
		services.ErrNoSupportedCodec,
		"encode",
		"negotiate codec",
		fmt.Sprintf("none of %v supported by this ffmpeg build", preference),
		nil,
	)
}

// listEncoders parses `ffmpeg -encoders` capability output into a name set.
func listEncoders(ctx context.Context, binary string) (map[string]struct{}, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, "-hide_banner", "-encoders")
	cmd.WaitDelay = pipeWaitDelay
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	encoders := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// fields[0] is the capability flag column (e.g. "V....D"),
		// fields[1] the encoder name.
		encoders[fields[1]] = struct{}{}
	}
	return encoders, scanner.Err()
}

// ContainerExtension returns the output container extension for a codec.
func ContainerExtension(codec string) string {
	if entry, ok := containerByCodec[codec]; ok {
		return entry.extension
	}
	return ".mp4"
}

func audioCodecFor(codec string) string {
	if entry, ok := containerByCodec[codec]; ok {
		return entry.audioCodec
	}
	return "aac"
}
