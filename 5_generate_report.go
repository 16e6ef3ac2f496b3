package dailyai

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

const reportTitle = "What did I read today?"

var linkTextEscaper = strings.NewReplacer("[", "\\[", "]", "\\]")

// reportOptions are the flags of the report command
type reportOptions struct {
	Input    string
	Markdown string
	HTML     string
}

func (o *reportOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Input, "input", "i", "clusters.json", "clusters file written by classify")
	cmd.Flags().StringVar(&o.Markdown, "md", "report.md", "markdown report path")
	cmd.Flags().StringVar(&o.HTML, "html", "report.html", "HTML report path, empty to skip")
}

var reportOpts reportOptions

// GenerateReportCmd renders labeled clusters as markdown and HTML
var GenerateReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the browsing report in both markdown and HTML formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateReport(reportOpts)
	},
}

func init() {
	reportOpts.register(GenerateReportCmd)
}

func generateReport(opts reportOptions) error {
	clusters, err := LoadClustersJSON(opts.Input)
	if err != nil {
		return err
	}

	report := RenderMarkdown(clusters)
	if err := os.WriteFile(opts.Markdown, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	log.Info().Str("path", opts.Markdown).Msg("report generated")

	if opts.HTML == "" {
		return nil
	}
	htmlContent, err := RenderHTML(report, clusters)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.HTML, []byte(htmlContent), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	log.Info().Str("path", opts.HTML).Msg("HTML report generated")
	return nil
}

// reportDate is the day shown in report headers
func reportDate(clusters BrowserClusters) string {
	if clusters.GeneratedAt.IsZero() {
		return ""
	}
	return clusters.GeneratedAt.Format("2 January 2006")
}

// RenderMarkdown converts labeled clusters to the markdown report. Clusters
// are listed largest first; the order of URLs inside a cluster is kept.
func RenderMarkdown(clusters BrowserClusters) string {
	var b strings.Builder
	b.WriteString("# " + reportTitle + "\n\n")

	if len(clusters.Clusters) == 0 {
		b.WriteString("No browsing history found for this period.\n")
		return b.String()
	}

	total := 0
	for _, c := range clusters.Clusters {
		total += len(c.URLs)
	}
	if date := reportDate(clusters); date != "" {
		fmt.Fprintf(&b, "*Browsing report for %s: %d pages in %d topics*\n\n", date, total, len(clusters.Clusters))
	} else {
		fmt.Fprintf(&b, "*%d pages in %d topics*\n\n", total, len(clusters.Clusters))
	}

	ordered := make([]URLCluster, len(clusters.Clusters))
	copy(ordered, clusters.Clusters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].URLs) > len(ordered[j].URLs)
	})

	for i, cluster := range ordered {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, cluster.Label)
		for _, item := range cluster.URLs {
			title := linkTextEscaper.Replace(item.DisplayTitle())
			visits := "visit"
			if item.VisitCount != 1 {
				visits = "visits"
			}
			fmt.Fprintf(&b, "- [%s](<%s>) (%d %s)\n", title, item.URL, item.VisitCount, visits)
		}
		b.WriteString("\n---\n\n")
	}

	return b.String()
}

// RenderHTML generates a complete HTML document with embedded CSS
func RenderHTML(markdownContent string, clusters BrowserClusters) (string, error) {
	// Configure goldmark with extensions
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: reportTitle,
		Date:  reportDate(clusters),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return result.String(), nil
}
