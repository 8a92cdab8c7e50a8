package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultPlayers lists external players in order of preference. All of them accept WAV.
var DefaultPlayers = []string{"aplay", "ffplay", "mpv", "vlc"}

type Player struct {
	players  []string
	lookPath func(string) (string, error)
}

func New() *Player {
	return &Player{players: DefaultPlayers, lookPath: exec.LookPath}
}

// Play plays a finished recording with the first external player found on PATH.
// Canceling ctx kills the player.
func (p *Player) Play(ctx context.Context, audioFile string) error {
	if _, err := os.Stat(audioFile); err != nil {
		return fmt.Errorf("audio file not found: %s", audioFile)
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	cmd, err := commandFor(ctx, player, audioFile)
	if err != nil {
		return err
	}

	slog.Info("Playing recording", "file", audioFile, "player", player)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	slog.Debug("Playback completed", "file", audioFile)
	return nil
}

func commandFor(ctx context.Context, player, audioFile string) (*exec.Cmd, error) {
	switch player {
	case "aplay":
		return exec.CommandContext(ctx, "aplay", "-q", audioFile), nil
	case "ffplay":
		return exec.CommandContext(ctx, "ffplay", "-nodisp", "-autoexit", "-loglevel", "error", audioFile), nil
	case "mpv":
		return exec.CommandContext(ctx, "mpv", "--no-video", "--really-quiet", audioFile), nil
	case "vlc":
		return exec.CommandContext(ctx, "vlc", "--intf", "dummy", "--play-and-exit", audioFile), nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range p.players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(p.players, ", "))
}
