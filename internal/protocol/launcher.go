// internal/protocol/launcher.go
package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/internal/config"
)

// devtoolsLineRE matches the endpoint announcement Chrome prints to stderr.
var devtoolsLineRE = regexp.MustCompile(`DevTools listening on (ws://[^\s]+)`)

// Launched is a running browser process plus the endpoint to attach to.
type Launched struct {
	// WSURL is the DevTools websocket endpoint of the browser target.
	WSURL string

	cmd         *exec.Cmd
	userDataDir string
	removeData  bool
	logger      *zap.Logger
}

// Launch starts a Chrome/Chromium process with a DevTools endpoint and waits
// for the endpoint announcement on stderr.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Launched, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("launcher")

	execPath := cfg.ExecutablePath
	if execPath == "" {
		found, err := findExecutable()
		if err != nil {
			return nil, err
		}
		execPath = found
	}

	userDataDir := cfg.UserDataDir
	removeData := false
	if userDataDir == "" {
		dir, err := os.MkdirTemp("", "actuate-profile-")
		if err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
		userDataDir = dir
		removeData = true
	}

	args := []string{
		"--remote-debugging-port=0",
		"--user-data-dir=" + userDataDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-background-timer-throttling",
		"--disable-popup-blocking",
		"--disable-sync",
	}
	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	args = append(args, cfg.Args...)
	args = append(args, "about:blank")

	// The process outlives the launch deadline; Close owns its lifetime.
	cmd := exec.Command(execPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	logger.Info("Launching browser.",
		zap.String("executable", execPath),
		zap.Bool("headless", cfg.Headless))

	if err := cmd.Start(); err != nil {
		if removeData {
			_ = os.RemoveAll(userDataDir)
		}
		return nil, fmt.Errorf("failed to start browser process: %w", err)
	}

	l := &Launched{
		cmd:         cmd,
		userDataDir: userDataDir,
		removeData:  removeData,
		logger:      logger,
	}

	wsURL, err := awaitEndpoint(ctx, stderr)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	l.WSURL = wsURL

	logger.Debug("Browser endpoint ready.", zap.String("ws_url", wsURL))
	return l, nil
}

// Close kills the browser process and removes any temporary profile.
func (l *Launched) Close() error {
	var err error
	if l.cmd != nil && l.cmd.Process != nil {
		err = l.cmd.Process.Kill()
		_ = l.cmd.Wait()
	}
	if l.removeData {
		if rmErr := os.RemoveAll(l.userDataDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// awaitEndpoint scans the process's stderr for the DevTools announcement,
// bounded by ctx.
func awaitEndpoint(ctx context.Context, stderr io.Reader) (string, error) {
	type result struct {
		url string
		err error
	}
	ch := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(stderr)
		// Chrome can emit long lines before the announcement.
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if m := devtoolsLineRE.FindStringSubmatch(scanner.Text()); m != nil {
				ch <- result{url: m[1]}
				// Keep draining so the process never blocks on a full pipe.
				for scanner.Scan() {
				}
				return
			}
		}
		ch <- result{err: fmt.Errorf("browser exited before announcing a DevTools endpoint")}
	}()

	select {
	case r := <-ch:
		return r.url, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out waiting for DevTools endpoint: %w", ctx.Err())
	}
}

// ResolveWebSocketURL normalizes a remote endpoint: ws:// URLs pass through,
// http(s):// URLs are resolved via the /json/version discovery document.
func ResolveWebSocketURL(ctx context.Context, remoteURL string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("invalid remote URL %q: %w", remoteURL, err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return remoteURL, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported remote URL scheme %q", u.Scheme)
	}

	versionURL := strings.TrimRight(remoteURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", versionURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read discovery document: %w", err)
	}

	var doc struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := jsonAPI.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("discovery document at %s has no webSocketDebuggerUrl", versionURL)
	}
	return doc.WebSocketDebuggerURL, nil
}

// findExecutable searches the usual install locations for a Chrome-family
// binary.
func findExecutable() (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		candidates = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"headless-shell",
		}
	}

	for _, c := range candidates {
		if strings.ContainsRune(c, os.PathSeparator) || strings.ContainsRune(c, '/') {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome/Chromium executable found; set browser.executable_path")
}

// WaitWithTimeout is a convenience for launch flows: it derives a context
// bounded by the configured launch timeout.
func WaitWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
