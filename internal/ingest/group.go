package ingest

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-consistency/internal/facematch"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Columns names the input headers. Matching ignores case, diacritics and
// dash/underscore/space differences.
type Columns struct {
	RegistrantID string
	Day          string
	Shift        string
	ImageURL     string
}

// DefaultColumns are the headers of the attendance export.
var DefaultColumns = Columns{
	RegistrantID: "Reg ID",
	Day:          "Day",
	Shift:        "Shift",
	ImageURL:     "Image URL",
}

// Options configures Load.
type Options struct {
	Sheet   string // XLSX sheet name, first sheet when empty
	Columns Columns
	Logger  *zap.Logger
}

// Load reads the file at path and groups its rows by registrant.
func Load(path string, opts Options) ([]verification.RegistrationGroup, error) {
	rows, err := ReadRows(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	cols := opts.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Group(rows, cols, logger)
}

type columnIndex struct {
	regID, day, shift, url int
}

func locateColumns(header []string, cols Columns) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := facematch.NormalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	var missing []string
	find := func(name string) int {
		i, ok := positions[facematch.NormalizeHeader(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	idx := columnIndex{
		regID: find(cols.RegistrantID),
		day:   find(cols.Day),
		shift: find(cols.Shift),
		url:   find(cols.ImageURL),
	}
	if len(missing) > 0 {
		return columnIndex{}, eris.Errorf("input is missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// Group turns table rows (header first) into registration groups.
//
// Groups are ordered by registrant ID, numerically when IDs are integers. Records
// within a group are ordered by the numbers parsed from the day and shift labels,
// keeping input order for equal keys.
// Rows without a registrant ID are skipped. Rows with an empty image reference
// are kept and become missing samples during verification. A label without a
// number sorts as 0.
func Group(rows [][]string, cols Columns, logger *zap.Logger) ([]verification.RegistrationGroup, error) {
	if len(rows) == 0 {
		return nil, eris.New("input is empty")
	}
	idx, err := locateColumns(rows[0], cols)
	if err != nil {
		return nil, err
	}

	byID := make(map[string][]verification.ImageRecord)
	for line, row := range rows[1:] {
		regID := cell(row, idx.regID)
		if regID == "" {
			if slices.ContainsFunc(row, func(s string) bool { return strings.TrimSpace(s) != "" }) {
				logger.Warn("skipping row without registrant ID", zap.Int("row", line+2))
			}
			continue
		}

		img := Image{Day: cell(row, idx.day), Shift: cell(row, idx.shift), Reference: cell(row, idx.url)}
		byID[regID] = append(byID[regID], newRecord(regID, img, logger.With(zap.Int("row", line+2))))
	}

	groups := make([]verification.RegistrationGroup, 0, len(byID))
	for id, records := range byID {
		sortRecords(records)
		groups = append(groups, verification.RegistrationGroup{RegistrantID: id, Records: records})
	}
	slices.SortFunc(groups, func(a, b verification.RegistrationGroup) int {
		return compareRegistrantIDs(a.RegistrantID, b.RegistrantID)
	})
	return groups, nil
}

// compareRegistrantIDs orders integer IDs numerically and before any other ID.
// Other IDs, and integers of equal value, compare as strings.
func compareRegistrantIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Or(cmp.Compare(na, nb), cmp.Compare(a, b))
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

// Image is one submitted photo before ordering.
type Image struct {
	Day       string `json:"day"`
	Shift     string `json:"shift"`
	Reference string `json:"url"`
}

// NewGroup orders the images of a single registrant the same way Group does.
func NewGroup(regID string, images []Image, logger *zap.Logger) verification.RegistrationGroup {
	if logger == nil {
		logger = zap.NewNop()
	}
	records := make([]verification.ImageRecord, len(images))
	for i, img := range images {
		records[i] = newRecord(regID, img, logger.With(zap.Int("image", i)))
	}
	sortRecords(records)
	return verification.RegistrationGroup{RegistrantID: regID, Records: records}
}

func newRecord(regID string, img Image, logger *zap.Logger) verification.ImageRecord {
	return verification.ImageRecord{
		RegistrantID: regID,
		Day:          img.Day,
		Shift:        img.Shift,
		DayIndex:     ordinal(img.Day, "day", logger),
		ShiftIndex:   ordinal(img.Shift, "shift", logger),
		Reference:    img.Reference,
	}
}

func sortRecords(records []verification.ImageRecord) {
	slices.SortStableFunc(records, func(a, b verification.ImageRecord) int {
		return cmp.Or(cmp.Compare(a.DayIndex, b.DayIndex), cmp.Compare(a.ShiftIndex, b.ShiftIndex))
	})
}

func ordinal(label, field string, logger *zap.Logger) int {
	n, ok := facematch.ParseOrdinal(label)
	if !ok {
		logger.Warn("label has no number, sorting first",
			zap.String("field", field),
			zap.String("label", label),
		)
	}
	return n
}
