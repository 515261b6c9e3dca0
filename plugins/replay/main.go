// Command replay is a classifier plugin for rehearsals and tests. It answers
// with the label embedded in a text "screenshot" (label:DAY_II) or, failing
// that, with the next line of the file named by NIGHTWATCH_REPLAY_FILE.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-plugin"

	visionrpc "nightwatch/internal/modules/vision/adapter/out/rpc"
)

const replayFileEnv = "NIGHTWATCH_REPLAY_FILE"

var labels = []string{"DAY_I", "DAY_II", "DAY_III", "DEFEAT", "NIGHT_LORD_DEFEATED", "UNKNOWN"}

type server struct {
	mu     sync.Mutex
	script []string
	next   int
}

func newServer() (*server, error) {
	s := &server{}
	path := os.Getenv(replayFileEnv)
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.script = append(s.script, line)
	}
	return s, scanner.Err()
}

func (s *server) GetMetadata(_ context.Context, _ *visionrpc.Empty) (*visionrpc.Metadata, error) {
	return &visionrpc.Metadata{
		Name:         "replay",
		Version:      "1.0.0",
		Capabilities: []string{"classify", "labels"},
		Labels:       labels,
	}, nil
}

func (s *server) Classify(_ context.Context, in *visionrpc.ClassifyRequest) (*visionrpc.ClassifyResponse, error) {
	if label, ok := embeddedLabel(in.ScreenImage); ok {
		return &visionrpc.ClassifyResponse{GameState: label, Confidence: 1}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return &visionrpc.ClassifyResponse{GameState: "UNKNOWN"}, nil
	}
	label := s.script[s.next]
	if s.next < len(s.script)-1 {
		s.next++
	}
	return &visionrpc.ClassifyResponse{GameState: label, Confidence: 1}, nil
}

func embeddedLabel(dataURI string) (string, bool) {
	_, payload, ok := strings.Cut(dataURI, ";base64,")
	if !ok {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(raw))
	label, ok := strings.CutPrefix(text, "label:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(label), true
}

func main() {
	impl, err := newServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: visionrpc.HandshakeConfig,
		Plugins:         visionrpc.PluginMap(impl),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
