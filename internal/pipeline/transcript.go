package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/igotools/coursevault/internal/naming"
)

// Transcript kinds; the kind appears in the saved filename and in the
// transcript_fetches_total metric labels.
const (
	kindVTT     = "vtt"
	kindHosted  = "youtube"
	kindRawJSON = "json"
)

// SaveTranscript writes transcript content under folder as
// transcript_{kind}_{name}_{idSuffix}.txt with a small provenance header.
func SaveTranscript(folder, id, name, kind, content string) error {
	base := fmt.Sprintf("transcript_%s_%s_%s.txt",
		kind,
		naming.Sanitize(name, naming.ResourceNameLimit),
		naming.IDSuffix(id, 10),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Transcript for: %s\n", name)
	fmt.Fprintf(&b, "Resource ID: %s\n", id)
	fmt.Fprintf(&b, "Source: %s\n", kind)
	fmt.Fprintf(&b, "Fetched: %s\n", time.Now().Format(time.RFC3339))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}

	path := filepath.Join(folder, base)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	return nil
}
