//go:build integration

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"compkit/internal/app"
	"compkit/internal/core"
	"compkit/internal/types"
	"compkit/tests/testutil"
)

const registryServerScript = `
import json
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

SCRIPT = 'mkdir -p "$COMPKIT_DIST_ROOT"\nprintf "var compiled = true;\\n" > "$COMPKIT_DIST_ROOT/index.js"\n'

class Handler(BaseHTTPRequestHandler):
    def do_GET(self):
        if self.path == "/plugins/sh-compiler/versions":
            body = json.dumps({"versions": ["1.0.0", "1.2.0", "1.10.0"]}).encode("utf-8")
            self.send_response(200)
            self.send_header("Content-Type", "application/json")
            self.end_headers()
            self.wfile.write(body)
            return
        if self.path == "/plugins/sh-compiler/1.10.0/impl.sh":
            self.send_response(200)
            self.end_headers()
            self.wfile.write(SCRIPT.encode("utf-8"))
            return
        self.send_response(404)
        self.end_headers()

    def log_message(self, format, *args):
        return

def main():
    server = ThreadingHTTPServer(("0.0.0.0", 8080), Handler)
    server.serve_forever()

if __name__ == "__main__":
    main()
`

func startPluginRegistry(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"python", "-c", registryServerScript},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}

// TestBuildInstallsCompilerFromRegistry exercises the plugin registry
// path end to end: the workspace declares a compiler by name only, the
// build installs the highest published version from the registry and
// compiles with it.
func TestBuildInstallsCompilerFromRegistry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startPluginRegistry(ctx, t)
	t.Cleanup(cleanup)

	root := t.TempDir()
	testutil.WriteWorkspaceFile(t, root, "compkit.yaml", "compiler:\n  name: sh-compiler\n")
	testutil.WriteWorkspaceFile(t, root, "components/button/index.js", "var x = 1\n")

	service, err := app.NewService(root, endpoint)
	require.NoError(t, err)

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "button",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "components/button/index.js",
		Origin:   types.OriginAuthored,
		Files: []types.SourceFile{
			{RelativePath: "components/button/index.js", Name: "index.js", Contents: []byte("var x = 1\n")},
		},
	})
	require.NoError(t, err)
	_, err = service.WriteComponent(ctx, component)
	require.NoError(t, err)

	id := types.ComponentID{Scope: "ui", Name: "button", Version: "1.0.0"}
	result, err := service.Build(ctx, app.BuildRequest{ID: id})
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Len(t, result.Dists, 1)
	require.Equal(t, []byte("var compiled = true;\n"), result.Dists[0].Contents)

	// The highest published version's script is what got installed.
	require.FileExists(t, filepath.Join(root, ".compkit/env/sh-compiler/impl.sh"))
}
