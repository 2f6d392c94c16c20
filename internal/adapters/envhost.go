package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/rs/zerolog/log"

	"compkit/internal/ports"
	"compkit/internal/types"
)

const defaultPluginFetchTimeout = 30 * time.Second
const defaultPluginFetchRetries = 3
const defaultPluginRetryDelay = 200 * time.Millisecond
const maxPluginRetryDelay = 2 * time.Second

type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeHTTPConfig(timeoutSec int, retries int, delayMs int) httpRetryConfig {
	cfg := httpRetryConfig{
		timeout:   defaultPluginFetchTimeout,
		retries:   defaultPluginFetchRetries,
		baseDelay: defaultPluginRetryDelay,
	}
	if timeoutSec > 0 {
		cfg.timeout = time.Duration(timeoutSec) * time.Second
	}
	if retries > 0 {
		cfg.retries = retries
	}
	if delayMs > 0 {
		cfg.baseDelay = time.Duration(delayMs) * time.Millisecond
	}
	return cfg
}

func pluginRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay << attempt
	if delay > maxPluginRetryDelay {
		delay = maxPluginRetryDelay
	}
	return delay
}

// EnvHostAdapter installs compiler and tester implementations into a
// workspace environment directory, either from a local path or from an
// HTTP plugin registry.
type EnvHostAdapter struct {
	registryBase string
	httpCfg      httpRetryConfig
}

func NewEnvHostAdapter(registryBase string) EnvHostAdapter {
	return EnvHostAdapter{
		registryBase: strings.TrimRight(strings.TrimSpace(registryBase), "/"),
		httpCfg:      normalizeHTTPConfig(0, 0, 0),
	}
}

// Load wraps an environment descriptor into a runnable plugin. The
// descriptor's script may be inline (in its files map), already
// installed in the env dir, or pending installation from the registry.
func (a EnvHostAdapter) Load(descriptor *types.EnvDescriptor, kind types.EnvKind, envDir string) ports.PluginEnvelope {
	return NewCommandPlugin(descriptor, kind, envDir, a)
}

// InstallScript materializes a plugin's implementation script in the
// env dir and returns its path. A descriptor carrying the script
// inline installs from memory; otherwise the registry is consulted.
func (a EnvHostAdapter) InstallScript(ctx context.Context, descriptor *types.EnvDescriptor, envDir string, req ports.InstallRequest) (string, error) {
	dir := filepath.Join(envDir, descriptor.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create plugin directory for " + descriptor.Name).
			WithCause(err)
	}
	target := filepath.Join(dir, pluginScriptName)
	if script, ok := descriptor.Files[pluginScriptName]; ok {
		if err := os.WriteFile(target, []byte(script), 0755); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to install inline plugin " + descriptor.Name).
				WithCause(err)
		}
		return target, nil
	}
	if a.registryBase == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("plugin " + descriptor.Name + " carries no script and no plugin registry is configured")
	}
	version, err := a.pickVersion(ctx, descriptor.Name, req.Constraint)
	if err != nil {
		return "", err
	}
	script, err := a.fetchScript(ctx, descriptor.Name, version)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(target, script, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to install plugin " + descriptor.Name).
			WithCause(err)
	}
	log.Ctx(ctx).Debug().
		Str("plugin", descriptor.Name).
		Str("version", version).
		Str("workspace", req.WorkspaceRoot).
		Msg("plugin installed")
	return target, nil
}

type pluginVersionsResponse struct {
	Versions []string `json:"versions"`
}

// pickVersion selects the highest published version satisfying the
// PEP 440 constraint, or the highest overall when no constraint is
// given.
func (a EnvHostAdapter) pickVersion(ctx context.Context, name string, constraint string) (string, error) {
	body, err := a.fetch(ctx, fmt.Sprintf("%s/plugins/%s/versions", a.registryBase, name))
	if err != nil {
		return "", err
	}
	var response pluginVersionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("plugin registry returned an invalid version list for " + name).
			WithCause(err)
	}
	if len(response.Versions) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("plugin " + name + " has no published versions")
	}
	var specifiers *pep440.Specifiers
	if strings.TrimSpace(constraint) != "" {
		parsed, err := pep440.NewSpecifiers(constraint)
		if err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid plugin version constraint " + constraint).
				WithCause(err)
		}
		specifiers = &parsed
	}
	best := ""
	var bestParsed pep440.Version
	for _, candidate := range response.Versions {
		parsed, err := pep440.Parse(candidate)
		if err != nil {
			continue
		}
		if specifiers != nil && !specifiers.Check(parsed) {
			continue
		}
		if best == "" || bestParsed.LessThan(parsed) {
			best = candidate
			bestParsed = parsed
		}
	}
	if best == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no published version of plugin " + name + " satisfies " + constraint)
	}
	return best, nil
}

func (a EnvHostAdapter) fetchScript(ctx context.Context, name string, version string) ([]byte, error) {
	return a.fetch(ctx, fmt.Sprintf("%s/plugins/%s/%s/%s", a.registryBase, name, version, pluginScriptName))
}

func (a EnvHostAdapter) fetch(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: a.httpCfg.timeout}
	var lastErr error
	for attempt := 0; attempt < a.httpCfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("plugin fetch canceled").
				WithCause(ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create plugin registry request").
				WithCause(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < a.httpCfg.retries-1 {
				time.Sleep(pluginRetryDelay(attempt, a.httpCfg))
				continue
			}
			break
		}
		if (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) && attempt < a.httpCfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			time.Sleep(pluginRetryDelay(attempt, a.httpCfg))
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("plugin registry has no resource at " + url)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("plugin registry request failed").
				WithCause(fmt.Errorf("status=%d url=%s", resp.StatusCode, url))
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read plugin registry response").
				WithCause(err)
		}
		return body, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("plugin registry request failed").
		WithCause(lastErr)
}
