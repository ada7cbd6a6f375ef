package secrets

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// gitleaksPrefix namespaces rule IDs reported by the gitleaks ruleset.
const gitleaksPrefix = "gitleaks:"

// leakDetector runs the gitleaks default ruleset. The detector is built once
// and shared; calls are serialized.
type leakDetector struct {
	mu       sync.Mutex
	detector *detect.Detector
}

func newLeakDetector() (*leakDetector, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("gitleaks detector: %w", err)
	}
	return &leakDetector{detector: d}, nil
}

// spans returns every occurrence of each detected secret in content.
func (l *leakDetector) spans(content string) []Finding {
	l.mu.Lock()
	found := l.detector.DetectString(content)
	l.mu.Unlock()

	var out []Finding
	for _, f := range found {
		if f.Secret == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(content[from:], f.Secret)
			if i < 0 {
				break
			}
			start := from + i
			out = append(out, Finding{
				RuleID:     gitleaksPrefix + f.RuleID,
				StartIndex: start,
				EndIndex:   start + len(f.Secret),
			})
			from = start + len(f.Secret)
		}
	}
	return out
}
