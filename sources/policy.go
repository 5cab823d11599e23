package sources

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractPolicyText returns the plain text of every page of a PDF report.
func (l *Loader) ExtractPolicyText(path string) (string, error) {
	l.logger.Info("[loader] Extracting text from PDF %s", path)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("loader: open pdf %q: %w", path, err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("loader: extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("loader: read pdf text: %w", err)
	}

	l.logger.Info("[loader] Extracted %d characters from %d pages", buf.Len(), r.NumPage())
	return buf.String(), nil
}
