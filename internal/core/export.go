package core

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JonMunkholm/formconsole/internal/logging"
	"github.com/JonMunkholm/formconsole/internal/observability"
)

// ExportFormat is the file format of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "", "csv" and "xlsx".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// NotAnswered is the detailed-export answer for empty values.
const NotAnswered = "Not answered"

var (
	SummaryHeader  = []string{"Template ID", "Template Name", "Contributors Count", "Last Updated"}
	DetailedHeader = []string{"Template ID", "Template Name", "User ID", "Username", "Question", "Answer", "Contributed At"}
)

// ExportRows flattens submissions into a header and rows. Summary mode
// yields one row per submission; detailed mode one row per contributor per
// answered field. Legacy submissions have no contributors and produce no
// detailed rows. tmpls maps template ids to their templates; missing
// entries fall back to the submission's stored name.
func ExportRows(subs []Submission, tmpls map[string]*Template, detailed bool) ([]string, [][]string) {
	if !detailed {
		rows := make([][]string, 0, len(subs))
		for i := range subs {
			sub := &subs[i]
			rows = append(rows, []string{
				sub.DisplayID(),
				exportTemplateName(sub, tmpls[sub.TemplateID]),
				strconv.Itoa(len(sub.UserContributions)),
				FormatISO(sub.SubmittedAt),
			})
		}
		return SummaryHeader, rows
	}

	var rows [][]string
	for i := range subs {
		sub := &subs[i]
		tmpl := tmpls[sub.TemplateID]
		name := exportTemplateName(sub, tmpl)
		for _, uid := range sub.ContributorIDs() {
			c := sub.UserContributions[uid]
			username := c.Username
			if username == "" {
				username = UnknownUser
			}
			contributedAt := FormatISO(c.ContributedAt)
			for _, fieldID := range sortedKeys(c.Data) {
				meta := c.FieldMetadata[fieldID]
				question := QuestionLabel(fieldID, meta, tmpl)
				if meta.SectionLabel != "" {
					question += " [Section: " + meta.SectionLabel + "]"
				}
				answer := NotAnswered
				if v := c.Data[fieldID]; !IsEmptyValue(v) {
					answer = FormatValue(v)
				}
				rows = append(rows, []string{
					sub.DisplayID(), name, uid, username, question, answer, contributedAt,
				})
			}
		}
	}
	return DetailedHeader, rows
}

func exportTemplateName(sub *Submission, tmpl *Template) string {
	switch {
	case tmpl != nil && tmpl.TemplateName != "":
		return tmpl.TemplateName
	case sub.TemplateName != "":
		return sub.TemplateName
	default:
		return UnknownTemplate
	}
}

// EscapeCSV quotes a field that contains a comma, double quote or newline,
// doubling internal quotes. Other values are returned unchanged.
func EscapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// EncodeCSV renders header and rows as CSV text with "\n" line endings.
func EncodeCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	writeCSVLine(&sb, header)
	for _, row := range rows {
		sb.WriteByte('\n')
		writeCSVLine(&sb, row)
	}
	return sb.String()
}

func writeCSVLine(sb *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(EscapeCSV(c))
	}
}

// EncodeXLSX renders header and rows as a single-sheet workbook.
func EncodeXLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := setXLSXRow(f, sheet, 1, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := setXLSXRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setXLSXRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportOptions selects the shape and format of an export.
type ExportOptions struct {
	Detailed bool
	Format   ExportFormat
}

// ExportCSV renders submissions as CSV text. Templates are fetched once for
// the whole batch; a failed fetch degrades to stored names.
func (s *Service) ExportCSV(ctx context.Context, subs []Submission, detailed bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	header, rows := ExportRows(subs, s.prefetchTemplates(ctx, subs), detailed)
	return EncodeCSV(header, rows), nil
}

// ExportSubmissions renders every submission matching f.
func (s *Service) ExportSubmissions(ctx context.Context, f SubmissionFilter, opts ExportOptions) (*ExportFile, error) {
	name := ExportFileName("submissions", "", opts.Format, s.now())
	return s.export(ctx, name, opts, func(ctx context.Context) ([]Submission, error) {
		return s.QuerySubmissions(ctx, f)
	})
}

// ExportSubmission renders a single submission.
func (s *Service) ExportSubmission(ctx context.Context, id string, opts ExportOptions) (*ExportFile, error) {
	name := ExportFileName("submission", id, opts.Format, s.now())
	return s.export(ctx, name, opts, func(ctx context.Context) ([]Submission, error) {
		sub, err := s.store.GetSubmission(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get submission: %w", err)
		}
		return []Submission{*sub}, nil
	})
}

func (s *Service) export(ctx context.Context, name string, opts ExportOptions, load func(context.Context) ([]Submission, error)) (file *ExportFile, err error) {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	ctx, span := observability.StartSpan(ctx, "submission.export",
		attribute.String("export.format", string(opts.Format)),
		attribute.Bool("export.detailed", opts.Detailed),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	subs, err := load(ctx)
	if err != nil {
		return nil, err
	}
	header, rows := ExportRows(subs, s.prefetchTemplates(ctx, subs), opts.Detailed)

	file = &ExportFile{Name: name, ContentType: opts.Format.ContentType(), Rows: len(rows)}
	switch opts.Format {
	case FormatXLSX:
		sheet := "Summary"
		if opts.Detailed {
			sheet = "Responses"
		}
		if file.Data, err = EncodeXLSX(sheet, header, rows); err != nil {
			return nil, err
		}
	case FormatCSV:
		file.Data = []byte(EncodeCSV(header, rows))
	default:
		return nil, fmt.Errorf("unsupported export format %q", opts.Format)
	}

	logging.FromContext(ctx).Info("export built",
		"file", file.Name, "submissions", len(subs), "rows", file.Rows, "detailed", opts.Detailed)
	span.SetAttributes(attribute.Int("export.rows", file.Rows))
	return file, nil
}

// ExportFileName builds download names like submissions_2024-06-01.csv and
// submission_<id>_2024-06-01.xlsx.
func ExportFileName(prefix, id string, format ExportFormat, now time.Time) string {
	if format == "" {
		format = FormatCSV
	}
	date := now.UTC().Format("2006-01-02")
	if id != "" {
		return fmt.Sprintf("%s_%s_%s.%s", prefix, sanitizeFileComponent(id), date, format)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, date, format)
}

func sanitizeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
