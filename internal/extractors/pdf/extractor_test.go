package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner implements CommandRunner for testing.
type fakeRunner struct {
	output []byte
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.gotName = name
	f.gotArgs = args
	return f.output, f.err
}

func TestExtractor_InvokesPdftotextWithLayout(t *testing.T) {
	runner := &fakeRunner{output: []byte("  extracted text  \n")}
	e := NewWithRunner(runner)

	text, err := e.Extract(context.Background(), "/docs/paper.pdf")
	require.NoError(t, err)

	assert.Equal(t, "extracted text", text)
	assert.Equal(t, "pdftotext", runner.gotName)
	assert.Equal(t, []string{"-layout", "/docs/paper.pdf", "-"}, runner.gotArgs)
}

func TestExtractor_PropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	e := NewWithRunner(runner)

	_, err := e.Extract(context.Background(), "/docs/broken.pdf")
	assert.Error(t, err)
}

func TestExtractor_MissingToolError(t *testing.T) {
	runner := &fakeRunner{err: ErrPDFToolNotFound}
	e := NewWithRunner(runner)

	_, err := e.Extract(context.Background(), "/docs/paper.pdf")
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestExtractor_SupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New().SupportedExtensions())
}
