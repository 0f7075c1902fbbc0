// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"strconv"
)

// Raw column names produced by the ingestion source.
const (
	ColCompany          = "Company"
	ColTypeName         = "TypeName"
	ColInches           = "Inches"
	ColScreenResolution = "ScreenResolution"
	ColCPU              = "Cpu"
	ColRAM              = "Ram"
	ColMemory           = "Memory"
	ColGPU              = "Gpu"
	ColOpSys            = "OpSys"
	ColWeight           = "Weight"
	ColPrice            = "Price"
)

// Engineered column names.
const (
	ColTouchscreen   = "Touchscreen"
	ColIPS           = "IPS"
	ColPPI           = "ppi"
	ColCPUCategory   = "Cpu_Category"
	ColSSD           = "SSD"
	ColHDD           = "HDD"
	ColFlashStorage  = "Flash_Storage"
	ColHybrid        = "Hybrid"
	ColGPUCategory   = "Gpu_category"
	ColOpSysCategory = "categorize_opsys"
)

// RawTable is a batch of raw rows as delivered by an ingestion source.
// Cells are kept as strings until feature engineering parses them.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// Len returns the number of rows.
func (t *RawTable) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the table header.
func (t *RawTable) HasColumn(col string) bool { return slices.Contains(t.Columns, col) }

// Subset returns a table sharing the header with the rows at idx.
func (t *RawTable) Subset(idx []int) *RawTable {
	out := &RawTable{Columns: slices.Clone(t.Columns), Rows: make([]map[string]string, 0, len(idx))}
	for _, i := range idx {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// RawRecord is one laptop listing before feature engineering.
// Price is only meaningful when HasPrice is set.
type RawRecord struct {
	Company          string  `json:"Company"`
	TypeName         string  `json:"TypeName"`
	Inches           float64 `json:"Inches"`
	ScreenResolution string  `json:"ScreenResolution"`
	CPU              string  `json:"Cpu"`
	RAM              string  `json:"Ram"`
	Memory           string  `json:"Memory"`
	GPU              string  `json:"Gpu"`
	OpSys            string  `json:"OpSys"`
	Weight           string  `json:"Weight"`
	Price            float64 `json:"Price,omitempty"`
	HasPrice         bool    `json:"-"`
}

// EngineeredRecord is a record after derivation of all model features.
type EngineeredRecord struct {
	Company       string
	TypeName      string
	RAM           int
	Weight        float64
	Price         float64
	HasPrice      bool
	Touchscreen   int
	IPS           int
	PPI           float64
	CPUCategory   int
	SSD           int
	HDD           int
	FlashStorage  int
	Hybrid        int
	GPUCategory   string
	OpSysCategory string
}

// Value returns the cell for an engineered column name. Numbers are returned
// as float64 and categories as string; ok is false for unknown columns and
// for Price on records without a target.
func (r EngineeredRecord) Value(col string) (any, bool) {
	switch col {
	case ColCompany:
		return r.Company, true
	case ColTypeName:
		return r.TypeName, true
	case ColRAM:
		return float64(r.RAM), true
	case ColWeight:
		return r.Weight, true
	case ColPrice:
		return r.Price, r.HasPrice
	case ColTouchscreen:
		return float64(r.Touchscreen), true
	case ColIPS:
		return float64(r.IPS), true
	case ColPPI:
		return r.PPI, true
	case ColCPUCategory:
		return float64(r.CPUCategory), true
	case ColSSD:
		return float64(r.SSD), true
	case ColHDD:
		return float64(r.HDD), true
	case ColFlashStorage:
		return float64(r.FlashStorage), true
	case ColHybrid:
		return float64(r.Hybrid), true
	case ColGPUCategory:
		return r.GPUCategory, true
	case ColOpSysCategory:
		return r.OpSysCategory, true
	}
	return nil, false
}

// Frame is a column-ordered table of engineered values. Cells hold float64
// or string.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Index returns the position of col, or -1.
func (f *Frame) Index(col string) int { return slices.Index(f.Columns, col) }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Column returns the values of col, or nil if it is absent.
func (f *Frame) Column(col string) []any {
	i := f.Index(col)
	if i < 0 {
		return nil
	}
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out
}

// Floats returns col as float64 values. ok is false if the column is absent
// or holds a non-numeric cell.
func (f *Frame) Floats(col string) ([]float64, bool) {
	i := f.Index(col)
	if i < 0 {
		return nil, false
	}
	out := make([]float64, len(f.Rows))
	for r, row := range f.Rows {
		v, ok := row[i].(float64)
		if !ok {
			return nil, false
		}
		out[r] = v
	}
	return out, true
}

// AddConstant appends col with the same value in every row.
func (f *Frame) AddConstant(col string, v any) {
	f.Columns = append(f.Columns, col)
	for r := range f.Rows {
		f.Rows[r] = append(f.Rows[r], v)
	}
}

// Drop returns a copy of the frame without col.
func (f *Frame) Drop(col string) *Frame {
	keep := make([]string, 0, len(f.Columns))
	for _, c := range f.Columns {
		if c != col {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep)
	return out
}

// Select returns a frame with exactly cols in that order. missing lists any
// requested column the frame lacks; the result is nil when it is non-empty.
func (f *Frame) Select(cols []string) (out *Frame, missing []string) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = f.Index(c)
		if idx[i] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}
	out = &Frame{Columns: slices.Clone(cols), Rows: make([][]any, len(f.Rows))}
	for r, row := range f.Rows {
		sel := make([]any, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		out.Rows[r] = sel
	}
	return out, nil
}

// CategoryString renders a categorical cell the way encoders key it.
func CategoryString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return ""
}
