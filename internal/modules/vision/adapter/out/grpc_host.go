package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/sirupsen/logrus"

	visionrpc "nightwatch/internal/modules/vision/adapter/out/rpc"
	"nightwatch/internal/modules/vision/domain"
	visionout "nightwatch/internal/modules/vision/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

type conn struct {
	sha    string
	client *plugin.Client
	rpc    visionrpc.ClassifierClient
}

// GRPCHost keeps one plugin process per classifier alive between polls. A
// failed call kills the process so the next call starts a fresh one.
type GRPCHost struct {
	log *logrus.Entry

	mu    sync.Mutex
	conns map[string]*conn
	sink  *io.PipeWriter
}

func NewGRPCHost(log *logrus.Entry) visionout.Host {
	return &GRPCHost{log: log, conns: map[string]*conn{}}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		h.drop(manifest.Name)
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	capabilities := make([]domain.Capability, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		capabilities = append(capabilities, domain.Capability(capability))
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Capabilities: capabilities, Labels: meta.Labels}, nil
}

func (h *GRPCHost) Classify(ctx context.Context, manifest domain.Manifest, req domain.Request) (domain.Result, error) {
	client, err := h.connect(manifest)
	if err != nil {
		return domain.Result{}, err
	}
	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	response, err := client.Classify(callCtx, &visionrpc.ClassifyRequest{ScreenImage: req.ImageDataURI})
	if err != nil {
		h.drop(manifest.Name)
		if callCtx.Err() == context.DeadlineExceeded {
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, manifest.Name)
		}
		return domain.Result{}, fmt.Errorf("classify: %w", err)
	}
	return domain.Result{Label: response.GameState, Confidence: response.Confidence}, nil
}

// Close kills every plugin process.
func (h *GRPCHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, c := range h.conns {
		c.client.Kill()
		delete(h.conns, name)
	}
	if h.sink != nil {
		_ = h.sink.Close()
		h.sink = nil
	}
}

func (h *GRPCHost) connect(manifest domain.Manifest) (visionrpc.ClassifierClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[manifest.Name]; ok {
		if c.sha == manifest.SHA256 && !c.client.Exited() {
			return c.rpc, nil
		}
		c.client.Kill()
		delete(h.conns, manifest.Name)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  visionrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          visionrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           h.pluginLogger(manifest.Name),
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start classifier plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(visionrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense classifier plugin: %w", err)
	}
	typed, ok := raw.(visionrpc.ClassifierClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("classifier rpc client type mismatch")
	}
	h.conns[manifest.Name] = &conn{sha: manifest.SHA256, client: client, rpc: typed}
	if h.log != nil {
		h.log.WithField("plugin", manifest.Name).Info("classifier plugin started")
	}
	return typed, nil
}

func (h *GRPCHost) drop(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[name]; ok {
		c.client.Kill()
		delete(h.conns, name)
	}
}

// pluginLogger routes go-plugin's hclog output into the process logger at
// debug level. Called with h.mu held.
func (h *GRPCHost) pluginLogger(name string) hclog.Logger {
	if h.log == nil {
		return hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel})
	}
	if h.sink == nil {
		h.sink = h.log.Logger.WriterLevel(logrus.DebugLevel)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "plugin." + name,
		Output:     h.sink,
		Level:      hclog.Info,
		JSONFormat: false,
	})
}

func (h *GRPCHost) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
