// Package report writes verification results to an XLSX workbook with a detailed
// comparison sheet and a per-registration summary sheet.
package report

import (
	"io"

	"github.com/kozaktomas/face-consistency/internal/verification"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Default sheet names.
const (
	DetailedSheet = "Detailed Results"
	SummarySheet  = "Verification Summary"
)

var (
	detailedHeader = []string{"Reg ID", "Image 1", "Image 2", "Verified", "Distance", "Preprocessing", "Method", "Note"}
	summaryHeader  = []string{"Reg ID", "All Verified", "Failed At", "Outliers", "Strategy"}
)

// Options configures the workbook layout.
type Options struct {
	DetailedSheet string
	SummarySheet  string
}

func (o Options) withDefaults() Options {
	if o.DetailedSheet == "" {
		o.DetailedSheet = DetailedSheet
	}
	if o.SummarySheet == "" {
		o.SummarySheet = SummarySheet
	}
	return o
}

// Build creates the workbook in memory.
func Build(results []verification.Result, opts Options) (*xlsx.File, error) {
	opts = opts.withDefaults()
	f := xlsx.NewFile()

	detailed, err := f.AddSheet(opts.DetailedSheet)
	if err != nil {
		return nil, eris.Wrap(err, "report: add detailed sheet")
	}
	summary, err := f.AddSheet(opts.SummarySheet)
	if err != nil {
		return nil, eris.Wrap(err, "report: add summary sheet")
	}

	addHeader(detailed, detailedHeader)
	addHeader(summary, summaryHeader)

	for _, res := range results {
		for _, c := range res.Comparisons {
			addComparison(detailed, c)
		}
		addVerdict(summary, res.Verdict)
	}
	return f, nil
}

// Write encodes the workbook to w.
func Write(w io.Writer, results []verification.Result, opts Options) error {
	f, err := Build(results, opts)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// WriteXLSX saves the workbook to path.
func WriteXLSX(path string, results []verification.Result, opts Options) error {
	f, err := Build(results, opts)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names []string) {
	row := sheet.AddRow()
	for _, name := range names {
		row.AddCell().SetString(name)
	}
}

func addComparison(sheet *xlsx.Sheet, c verification.PairVerification) {
	row := sheet.AddRow()
	row.AddCell().SetString(c.RegistrantID)
	row.AddCell().SetString(c.LabelA)
	row.AddCell().SetString(c.LabelB)
	row.AddCell().SetBool(c.Verified)
	dist := row.AddCell()
	if c.Distance != nil {
		dist.SetFloat(*c.Distance)
	}
	row.AddCell().SetString(string(c.Strategy))
	row.AddCell().SetString(string(c.Method))
	row.AddCell().SetString(c.Note)
}

func addVerdict(sheet *xlsx.Sheet, v verification.RegistrationVerdict) {
	row := sheet.AddRow()
	row.AddCell().SetString(v.RegistrantID)
	row.AddCell().SetBool(v.AllVerified)
	row.AddCell().SetString(v.FailureLocus)
	row.AddCell().SetString(v.OutliersString())
	row.AddCell().SetString(string(v.Strategy))
}
