package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/kursadbilgin/index-notifier/internal/domain"
)

const (
	subjectPrefixDone  = "[DONE]"
	subjectPrefixError = "[ERROR]"
)

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<body style="font-family:sans-serif;">
<h2>Index notification batch result</h2>
<p>{{.SuccessCount}} succeeded, {{.FailureCount}} failed, {{.Total}} total.</p>
<table cellpadding="6" style="border-collapse:collapse;width:100%;">
<tr style="background-color:#f0f0f0;"><th>URL</th><th>Result</th><th>HTTP status</th><th>Message</th></tr>
{{- range .Rows}}
<tr style="background-color:{{if .Succeeded}}#eafbea{{else}}#ffeaea{{end}};">
<td style="word-break:break-all;">{{.URL}}</td>
<td style="font-weight:bold;color:{{if .Succeeded}}#218838{{else}}#c82333{{end}};">{{.Result}}</td>
<td>{{.HTTPStatus}}</td>
<td><pre style="white-space:pre-wrap;margin:0;font-family:inherit;">{{.Message}}</pre></td>
</tr>
{{- end}}
</table>
</body>
</html>
`))

type reportView struct {
	SuccessCount int
	FailureCount int
	Total        int
	Rows         []reportRow
}

type reportRow struct {
	URL        string
	Succeeded  bool
	Result     string
	HTTPStatus string
	Message    string
}

// Composer renders a run report as a MIME message.
type Composer struct {
	from string
	to   []string
	now  func() time.Time
}

func NewComposer(from string, to []string) (*Composer, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	return &Composer{
		from: from,
		to:   recipients,
		now:  time.Now,
	}, nil
}

func (c *Composer) From() string { return c.from }

func (c *Composer) Recipients() []string {
	out := make([]string, len(c.to))
	copy(out, c.to)
	return out
}

// Subject picks the subject line from the report classification only.
func Subject(report domain.RunReport) string {
	prefix := subjectPrefixDone
	if report.Classification() == domain.ClassificationHasFailures {
		prefix = subjectPrefixError
	}
	return fmt.Sprintf("%s Index notification batch result: %d items", prefix, report.Total())
}

// RenderHTML renders the per-item result table.
func RenderHTML(report domain.RunReport) (string, error) {
	view := reportView{
		SuccessCount: report.SuccessCount,
		FailureCount: report.FailureCount,
		Total:        report.Total(),
		Rows:         make([]reportRow, 0, len(report.Items)),
	}

	for _, item := range report.Items {
		row := reportRow{
			URL:        item.URL,
			Succeeded:  item.Outcome == domain.OutcomeSucceeded,
			HTTPStatus: "-",
		}
		if item.HTTPStatus > 0 {
			row.HTTPStatus = fmt.Sprintf("%d", item.HTTPStatus)
		}

		switch {
		case row.Succeeded && item.LedgerError != "":
			row.Result = "success"
			row.Message = "notified, ledger update failed: " + item.LedgerError
		case row.Succeeded:
			row.Result = "success"
			row.Message = "notified"
		default:
			row.Result = "failure"
			row.Message = item.ErrorDetail
		}
		view.Rows = append(view.Rows, row)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Compose builds the full RFC 5322 message for report.
func (c *Composer) Compose(report domain.RunReport) ([]byte, error) {
	body, err := RenderHTML(report)
	if err != nil {
		return nil, err
	}

	var header gomail.Header
	header.SetDate(c.now())
	header.SetSubject(Subject(report))
	header.SetAddressList("From", []*gomail.Address{{Address: c.from}})
	to := make([]*gomail.Address, 0, len(c.to))
	for _, addr := range c.to {
		to = append(to, &gomail.Address{Address: addr})
	}
	header.SetAddressList("To", to)
	if err := header.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	writer, err := gomail.CreateSingleInlineWriter(&buf, htmlPartHeader(header))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}
	if _, err := io.WriteString(writer, body); err != nil {
		return nil, fmt.Errorf("failed to write mail body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close mail writer: %w", err)
	}

	return buf.Bytes(), nil
}

func htmlPartHeader(header gomail.Header) gomail.Header {
	header.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	return header
}
