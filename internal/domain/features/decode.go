package features

import (
	"errors"
	"strconv"
	"strings"

	"github.com/okian/lapprice/internal/domain/model"
)

// DecodeRecords converts raw table rows into records. Inches and, when
// present, Price are parsed here; the remaining fields stay textual.
func DecodeRecords(t *model.RawTable) ([]model.RawRecord, error) {
	hasPrice := t.HasColumn(model.ColPrice)
	out := make([]model.RawRecord, 0, t.Len())
	for i, row := range t.Rows {
		r := model.RawRecord{
			Company:          row[model.ColCompany],
			TypeName:         row[model.ColTypeName],
			ScreenResolution: row[model.ColScreenResolution],
			CPU:              row[model.ColCPU],
			RAM:              row[model.ColRAM],
			Memory:           row[model.ColMemory],
			GPU:              row[model.ColGPU],
			OpSys:            row[model.ColOpSys],
			Weight:           row[model.ColWeight],
		}

		inches, err := parseFloat(model.ColInches, row[model.ColInches])
		if err != nil {
			return nil, atRow(err, i)
		}
		r.Inches = inches

		if hasPrice {
			price, err := parseFloat(model.ColPrice, row[model.ColPrice])
			if err != nil {
				return nil, atRow(err, i)
			}
			r.Price, r.HasPrice = price, true
		}
		out = append(out, r)
	}
	return out, nil
}

func parseFloat(field, s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, malformed(field, s, errors.New("empty value"))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, malformed(field, s, err)
	}
	return v, nil
}
