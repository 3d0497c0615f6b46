// interfaces.go - Collaborator contracts, kept narrow for testing
package api

import (
	"context"
	"time"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/artifact"
)

// Renderer turns HTML into PDF bytes. *html2pdf.ConverterPool satisfies it.
type Renderer interface {
	Convert(ctx context.Context, input html2pdf.Input) ([]byte, error)
}

// ArtifactStore persists PDFs and expires them. *artifact.Store satisfies it.
type ArtifactStore interface {
	Create(data []byte) (artifact.Artifact, error)
	ScheduleDeletion(path string, delay time.Duration)
	Open(name string) (string, error)
}

// Authorizer validates Authorization header values. *auth.Guard satisfies it.
type Authorizer interface {
	Authorize(header string) error
}
