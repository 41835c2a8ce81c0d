package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"subtrack/internal/core"
)

// FormatGeneric is the only bank export layout currently recognised.
const FormatGeneric = "generic"

var (
	descriptionColumns = []string{"description", "libelle"}
	amountColumns      = []string{"amount", "montant"}
)

type bankService struct {
	keyword string
	name    string
}

var bankServices = []bankService{
	{"netflix", "Netflix"},
	{"spotify", "Spotify"},
	{"adobe creative cloud", "Adobe Creative Cloud"},
	{"dropbox", "Dropbox"},
	{"github pro", "GitHub Pro"},
}

// CSVParser extracts subscription charges from a bank statement export.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// ParseResult holds the records recognised in an export.
type ParseResult struct {
	Candidates []core.Candidate
	Rows       int
	// Skipped counts rows whose amount could not be parsed.
	Skipped int
}

// Parse reads a header-led export. Rows whose lowercase description contains
// a known service become monthly EUR candidates with the absolute amount;
// rows with an unparsable amount are skipped. Each row takes the first
// non-empty cell of description|libelle and of amount|montant, so a header
// missing those columns yields no candidates. Comma and semicolon separated
// files are both accepted.
func (p *CSVParser) Parse(r io.Reader, format string) (ParseResult, error) {
	if format == "" {
		format = FormatGeneric
	}
	if format != FormatGeneric {
		return ParseResult{}, core.NewDomainError(core.ErrorCodeSourceInvalid,
			fmt.Sprintf("Unknown bank format '%s'", format)).WithDetail("format", format)
	}

	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{Candidates: []core.Candidate{}}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read csv header: %w", err)
	}
	descIdx := columnIndexes(header, descriptionColumns)
	amtIdx := columnIndexes(header, amountColumns)

	res := ParseResult{Candidates: []core.Candidate{}}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv row %d: %w", res.Rows+1, err)
		}
		res.Rows++

		desc := strings.ToLower(firstValue(row, descIdx))
		amount := 0.0
		if raw := firstValue(row, amtIdx); raw != "" {
			amount, err = core.ParseAmount(raw)
			if err != nil {
				res.Skipped++
				continue
			}
		}

		for _, svc := range bankServices {
			if !strings.Contains(desc, svc.keyword) {
				continue
			}
			category := "other"
			if svc.name == "Netflix" || svc.name == "Spotify" {
				category = core.CategoryStreaming
			}
			res.Candidates = append(res.Candidates, core.Candidate{
				Service:  svc.name,
				Amount:   amount,
				Currency: core.DefaultCurrency,
				Cycle:    string(core.Monthly),
				Category: category,
			})
			break
		}
	}
	return res, nil
}

func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(br.Size())
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), ";") > strings.Count(string(line), ",") {
		return ';'
	}
	return ','
}

// columnIndexes returns the positions of the named columns, in names order.
func columnIndexes(header, names []string) []int {
	var out []int
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// firstValue returns the first non-blank cell among idx.
func firstValue(row []string, idx []int) string {
	for _, i := range idx {
		if i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}
