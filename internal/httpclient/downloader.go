package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/fileutils"
	"github.com/meza/mod-reconciler/internal/perf"
)

// Sender receives download progress. A *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgressMsg is the fraction of the current file received so far. It is
// only sent when the server announced a length.
type ProgressMsg float64

// ProgressErrMsg is sent once when writing the file fails.
type ProgressErrMsg struct{ Err error }

type noopSender struct{}

func (noopSender) Send(tea.Msg) {}

func NoopSender() Sender {
	return noopSender{}
}

type progress struct {
	sender   Sender
	total    int64
	received int64
}

func (p *progress) Write(chunk []byte) (int, error) {
	p.received += int64(len(chunk))
	if p.total > 0 {
		p.sender.Send(ProgressMsg(float64(p.received) / float64(p.total)))
	}
	return len(chunk), nil
}

// DownloadFile streams url into destination within DownloadTimeout. A
// partially written destination is removed.
func DownloadFile(ctx context.Context, url string, destination string, client Doer, sender Sender, filesystem ...afero.Fs) (returnErr error) {
	ctx, span := perf.StartSpan(ctx, "net.http.download",
		perf.WithAttributes(
			attribute.String("url", url),
			attribute.String("file_path", destination),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("success", returnErr == nil))
		span.End()
	}()

	if sender == nil {
		sender = NoopSender()
	}
	fs := fileutils.InitFilesystem(filesystem...)

	ctx, cancel := WithDownloadTimeout(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("failed to build download request: %w", err)}
	}
	response, err := client.Do(request)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer func() {
		returnErr = errors.Join(returnErr, response.Body.Close())
	}()

	span.SetAttributes(attribute.Int("status", response.StatusCode))
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &DownloadError{URL: url, StatusCode: response.StatusCode}
	}

	if err := writeBody(fs, destination, response.Body, &progress{sender: sender, total: response.ContentLength}); err != nil {
		sender.Send(ProgressErrMsg{Err: err})
		if removeErr := fs.Remove(destination); removeErr != nil {
			return errors.Join(err, fmt.Errorf("failed to remove partial file: %w", removeErr))
		}
		return err
	}
	return nil
}

func writeBody(fs afero.Fs, destination string, body io.Reader, tracker *progress) error {
	file, err := fs.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, copyErr := io.Copy(file, io.TeeReader(body, tracker))
	if closeErr := file.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return fmt.Errorf("failed to write file: %w", copyErr)
	}
	return nil
}
