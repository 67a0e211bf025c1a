package report

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// PDF export: HTML → PDF via wkhtmltopdf or headless chromium
// ════════════════════════════════════════════════════════════════════

// PDFEngine specifies which engine to use for HTML→PDF conversion.
type PDFEngine string

const (
	EngineWKHTML   PDFEngine = "wkhtmltopdf"
	EngineChromium PDFEngine = "chromium"
	EngineNone     PDFEngine = "none" // write the HTML next to the requested path
)

var chromiumBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// PDFConfig holds configuration for PDF generation.
type PDFConfig struct {
	Engine      PDFEngine // empty: auto-detect
	PageSize    string    // default: "A4"
	Orientation string    // statements are wide: "landscape" by default
	OutputPath  string    // required
}

// DefaultPDFConfig returns sensible defaults for PDF generation.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{PageSize: "A4", Orientation: "landscape"}
}

// DetectPDFEngine checks which PDF engine is available on the system.
func DetectPDFEngine() PDFEngine {
	if _, err := exec.LookPath("wkhtmltopdf"); err == nil {
		return EngineWKHTML
	}
	if chromiumPath() != "" {
		return EngineChromium
	}
	return EngineNone
}

func chromiumPath() string {
	for _, name := range chromiumBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// GeneratePDF converts an HTML report to a PDF file. Without an engine the
// HTML is written with a .html extension instead; the returned path says
// which file was produced.
func GeneratePDF(ctx context.Context, html []byte, cfg PDFConfig) (string, error) {
	if cfg.OutputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	engine := cfg.Engine
	if engine == "" {
		engine = DetectPDFEngine()
	}

	switch engine {
	case EngineNone:
		return writeHTMLFallback(html, cfg.OutputPath)
	case EngineWKHTML, EngineChromium:
	default:
		return "", fmt.Errorf("unsupported PDF engine: %s", engine)
	}

	src, err := writeTempHTML(html)
	if err != nil {
		return "", err
	}
	defer os.Remove(src)

	out, err := filepath.Abs(cfg.OutputPath)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	var cmd *exec.Cmd
	if engine == EngineWKHTML {
		cmd = exec.CommandContext(ctx, "wkhtmltopdf",
			"--page-size", cfg.PageSize,
			"--orientation", cfg.Orientation,
			"--encoding", "UTF-8",
			"--enable-local-file-access",
			"--quiet",
			src, out)
	} else {
		bin := chromiumPath()
		if bin == "" {
			return "", fmt.Errorf("chromium not found in PATH")
		}
		args := []string{"--headless", "--disable-gpu", "--no-sandbox", "--print-to-pdf=" + out, "--print-to-pdf-no-header"}
		if strings.EqualFold(cfg.Orientation, "landscape") {
			args = append(args, "--landscape")
		}
		cmd = exec.CommandContext(ctx, bin, append(args, "file://"+src)...)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s failed: %w\nOutput: %s", engine, err, output)
	}
	return out, nil
}

func writeTempHTML(html []byte) (string, error) {
	f, err := os.CreateTemp("", "creditplan-report-*.html")
	if err != nil {
		return "", fmt.Errorf("creating temp HTML: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(html); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp HTML: %w", err)
	}
	return f.Name(), nil
}

func writeHTMLFallback(html []byte, outputPath string) (string, error) {
	if strings.HasSuffix(strings.ToLower(outputPath), ".pdf") {
		outputPath = outputPath[:len(outputPath)-4] + ".html"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, html, 0644); err != nil {
		return "", fmt.Errorf("writing HTML fallback: %w", err)
	}
	return outputPath, nil
}
