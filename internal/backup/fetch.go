package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFilePort       = 2001
	defaultConnectTimeout = 10 * time.Second

	// idleTimeout ends the GetFile read: the controller streams the
	// file and then goes quiet without closing the socket on some
	// firmware revisions.
	idleTimeout = 2 * time.Second

	// minProjectSize is the decoded size below which the file is
	// almost certainly truncated or empty. Small files are warned
	// about but still used.
	minProjectSize = 1024

	// fileEncodeMarker opens the processing-instruction payload form.
	fileEncodeMarker = `<?File Encode="Base64"`

	loginTerminator = "</ILogin>"
	readChunkSize   = 64 * 1024
)

var returnCode = regexp.MustCompile(`<return>(.*?)</return>`)

// Logger is the minimal logging interface the fetcher depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// FetcherConfig holds file-port connection settings.
type FetcherConfig struct {
	Host string

	// Port is the file service port. Default: 2001.
	Port int

	// Username and Password authenticate the session. Both empty
	// skips the login exchange.
	Username string
	Password string

	// ConnectTimeout bounds the TCP dial. Default: 10s.
	ConnectTimeout time.Duration
}

// Fetcher retrieves the project file from the controller's file port.
type Fetcher struct {
	cfg    FetcherConfig
	logger Logger
}

// NewFetcher creates a fetcher. Zero config fields select defaults.
func NewFetcher(cfg FetcherConfig, logger Logger) *Fetcher {
	if cfg.Port == 0 {
		cfg.Port = defaultFilePort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch connects to the file port, authenticates when credentials are
// configured, requests Backup\Project.dc, and returns the decoded XML.
//
// Returns:
//   - []byte: The decoded project file
//   - error: Login rejection, missing payload, or transport failure
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	addr := net.JoinHostPort(f.cfg.Host, strconv.Itoa(f.cfg.Port))
	d := net.Dialer{Timeout: f.cfg.ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to file port: %w", err)
	}
	defer conn.Close()

	if f.cfg.Username != "" || f.cfg.Password != "" {
		if err := f.login(conn); err != nil {
			return nil, err
		}
	}

	f.logger.Info("requesting project file", "host", f.cfg.Host)
	req := `<IBackup><GetFile><call>Backup\Project.dc</call></GetFile></IBackup>` + "\n"
	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, fmt.Errorf("sending GetFile request: %w", err)
	}

	raw, err := readUntilIdle(conn)
	if err != nil {
		return nil, fmt.Errorf("reading GetFile response: %w", err)
	}

	encoded, err := extractPayload(string(raw))
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding project file payload: %w", err)
	}

	if len(decoded) < minProjectSize {
		f.logger.Warn("project file suspiciously small",
			"host", f.cfg.Host, "bytes", len(decoded))
	}
	f.logger.Info("project file retrieved",
		"host", f.cfg.Host, "bytes", len(decoded))
	return decoded, nil
}

// login performs the ILogin exchange. The reply's return code must be
// the literal "true".
func (f *Fetcher) login(conn net.Conn) error {
	req := fmt.Sprintf(
		"<ILogin><Login><call><User>%s</User><Password>%s</Password></call></Login></ILogin>\n",
		xmlEscape(f.cfg.Username), xmlEscape(f.cfg.Password))
	if _, err := conn.Write([]byte(req)); err != nil {
		return fmt.Errorf("sending login: %w", err)
	}

	var resp strings.Builder
	buf := make([]byte, 4096)
	for !strings.Contains(resp.String(), loginTerminator) {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			resp.Write(buf[:n])
		}
		if err != nil {
			return fmt.Errorf("%w: reading login reply: %w", ErrLoginFailed, err)
		}
	}
	_ = conn.SetReadDeadline(time.Time{})

	m := returnCode.FindStringSubmatch(resp.String())
	if m == nil {
		return fmt.Errorf("%w: no return code in reply", ErrLoginFailed)
	}
	if m[1] != "true" {
		return fmt.Errorf("%w: return code %q", ErrLoginFailed, m[1])
	}
	return nil
}

// readUntilIdle drains the connection until the controller closes it
// or stops sending. An idle timeout counts as end of stream because
// older firmware leaves the socket open after the transfer.
func readUntilIdle(conn net.Conn) ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, readChunkSize)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		n, err := conn.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				return out.Bytes(), nil
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return out.Bytes(), nil
			}
			return nil, err
		}
	}
}

// extractPayload pulls the base64 text out of a GetFile reply.
// Firmware encodes the file either inside a File processing
// instruction or as the bare text of the return node.
func extractPayload(resp string) (string, error) {
	// Skip the call echo and result status preamble.
	if i := strings.Index(resp, "</Result>"); i >= 0 {
		resp = resp[i+len("</Result>"):]
	}

	if i := strings.Index(resp, fileEncodeMarker); i >= 0 {
		payload := resp[i+len(fileEncodeMarker):]
		payload = strings.TrimLeft(payload, " /")
		if j := strings.Index(payload, "?>"); j >= 0 {
			payload = payload[:j]
		}
		if j := strings.Index(payload, "</return>"); j >= 0 {
			payload = payload[:j]
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			return "", ErrNoPayload
		}
		return payload, nil
	}

	start := strings.Index(resp, "<return>")
	end := strings.Index(resp, "</return>")
	if start < 0 || end < start {
		return "", ErrNoPayload
	}
	payload := strings.TrimSpace(resp[start+len("<return>") : end])
	if payload == "" {
		return "", ErrNoPayload
	}
	return payload, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
