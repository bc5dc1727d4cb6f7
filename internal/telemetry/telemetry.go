// Package telemetry sends anonymous command usage to PostHog. Commands are
// recorded while the process runs and flushed once by Shutdown.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/constants"
	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/reconcile"
)

const (
	machineIDEnvVar     = "MACHINE_ID"
	unknownMachineID    = "unknown"
	defaultEndpoint     = "https://eu.i.posthog.com"
	defaultFlushTimeout = 2 * time.Second
)

type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

type Logger interface {
	Debugf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}

type CommandTelemetry struct {
	Command  string
	Success  bool
	Error    error
	Duration time.Duration
	Extra    map[string]interface{}
}

var (
	clientBuilder     = defaultClientFactory
	machineIDProvider = defaultMachineID
	flushTimeout      = defaultFlushTimeout
)

type session struct {
	mu        sync.Mutex
	client    Client
	machineID string
	logger    Logger
	commands  []CommandTelemetry
	closed    bool
}

var state = &session{logger: noopLogger{}}

func defaultClientFactory(apiKey string, endpoint string) (Client, error) {
	return posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
}

func defaultMachineID() (string, error) {
	return machineid.ProtectedID(constants.AppName)
}

// Init enables telemetry unless MMM_DISABLE_TELEMETRY is set or no real
// PostHog key is configured. Calling it again is a no-op.
func Init(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.client != nil {
		return
	}
	state.logger = logger

	if environment.TelemetryDisabled() {
		logger.Debugf("telemetry disabled by environment")
		return
	}
	key := strings.TrimSpace(environment.PosthogAPIKey())
	if key == "" || environment.IsPlaceholder(key) {
		logger.Debugf("telemetry disabled: no api key")
		return
	}

	client, err := clientBuilder(key, defaultEndpoint)
	if err != nil {
		logger.Debugf("telemetry disabled: %v", err)
		return
	}
	state.client = client
	state.machineID = resolveMachineID()
}

func resolveMachineID() string {
	if id := strings.TrimSpace(os.Getenv(machineIDEnvVar)); id != "" {
		return id
	}
	id, err := machineIDProvider()
	if err != nil || strings.TrimSpace(id) == "" {
		return unknownMachineID
	}
	return id
}

// RecordCommand queues a command for the next Shutdown.
func RecordCommand(command CommandTelemetry) {
	if strings.TrimSpace(command.Command) == "" {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.client == nil || state.closed {
		return
	}
	state.commands = append(state.commands, command)
}

// Shutdown sends the recorded commands and closes the client, waiting at most
// the flush timeout or until ctx is done.
func Shutdown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	state.mu.Lock()
	if state.client == nil || state.closed {
		state.mu.Unlock()
		return
	}
	state.closed = true
	client, machineID, logger := state.client, state.machineID, state.logger
	commands := append([]CommandTelemetry(nil), state.commands...)
	state.mu.Unlock()

	for _, command := range commands {
		capture(client, logger, machineID, command.Command, commandProperties(command))
	}

	done := make(chan error, 1)
	go func() { done <- client.Close() }()

	timer := time.NewTimer(flushTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			logger.Debugf("telemetry close failed: %v", err)
		}
	case <-timer.C:
		logger.Debugf("telemetry flush timed out after %s", flushTimeout)
	case <-ctx.Done():
		logger.Debugf("telemetry flush cancelled: %v", ctx.Err())
	}
}

func capture(client Client, logger Logger, machineID string, event string, properties map[string]interface{}) {
	if event == "" {
		return
	}
	properties["version"] = environment.AppVersion()
	properties["os"] = runtime.GOOS
	properties["arch"] = runtime.GOARCH

	err := client.Enqueue(posthog.Capture{
		Event:      event,
		DistinctId: machineID,
		Properties: properties,
	})
	if err != nil {
		logger.Debugf("telemetry enqueue failed: %v", err)
	}
}

func commandProperties(command CommandTelemetry) map[string]interface{} {
	properties := map[string]interface{}{
		"type":    "command",
		"success": command.Success,
	}
	if command.Duration > 0 {
		properties["duration_ms"] = command.Duration.Milliseconds()
	}
	if command.Error != nil {
		properties["error_category"] = errorCategory(command.Error)
		properties["error"] = command.Error.Error()
	}
	if len(command.Extra) > 0 {
		properties["extra"] = command.Extra
	}
	return properties
}

func errorCategory(err error) string {
	var rateLimited *httpclient.RateLimitExceededError
	var transport *httpclient.TransportError
	var notFound *config.ConfigFileNotFoundError
	var invalid *config.ConfigFileInvalidError
	var projectNotFound *globalerrors.ProjectNotFoundError
	var projectAPI *globalerrors.ProjectAPIError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, reconcile.ErrReconcileFailures):
		return "item_failures"
	case errors.As(err, &notFound):
		return "config_not_found"
	case errors.As(err, &invalid):
		return "config_invalid"
	case errors.As(err, &projectNotFound):
		return "project_not_found"
	case errors.As(err, &projectAPI):
		return "project_api_error"
	case errors.As(err, &transport):
		return "transport"
	default:
		return "unknown"
	}
}

// Reset drops all state. Tests only.
func Reset() {
	state = &session{logger: noopLogger{}}
	clientBuilder = defaultClientFactory
	machineIDProvider = defaultMachineID
	flushTimeout = defaultFlushTimeout
}
